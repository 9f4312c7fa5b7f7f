package people

import (
	"context"
	"strings"
	"time"

	"github.com/simp-lee/peopleadmin/internal/domain"
)

// personService implements domain.PersonService.
type personService struct {
	repo domain.PersonRepository
	now  func() time.Time
}

// NewPersonService creates a new PersonService with the given repository.
func NewPersonService(repo domain.PersonRepository) domain.PersonService {
	return &personService{repo: repo, now: time.Now}
}

// CreatePerson validates in and persists it as a new record.
func (s *personService) CreatePerson(ctx context.Context, in domain.Person) (*domain.Person, error) {
	p := normalize(in)
	if err := s.validate(p); err != nil {
		return nil, err
	}
	p.ID = 0
	if err := s.repo.Create(ctx, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetPerson retrieves a person by ID.
func (s *personService) GetPerson(ctx context.Context, id uint) (*domain.Person, error) {
	return s.repo.GetByID(ctx, id)
}

// ListPeople returns one page of people.
func (s *personService) ListPeople(ctx context.Context, req domain.PageRequest) (*domain.PageResult[domain.Person], error) {
	return s.repo.List(ctx, req)
}

// ReplacePerson overwrites every field of an existing person.
func (s *personService) ReplacePerson(ctx context.Context, id uint, in domain.Person) (*domain.Person, error) {
	p := normalize(in)
	if err := s.validate(p); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	existing.LastName = p.LastName
	existing.FirstName = p.FirstName
	existing.Gender = p.Gender
	existing.BirthDate = p.BirthDate

	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// DeletePerson removes a person by ID.
func (s *personService) DeletePerson(ctx context.Context, id uint) error {
	return s.repo.Delete(ctx, id)
}

func normalize(p domain.Person) domain.Person {
	p.LastName = strings.TrimSpace(p.LastName)
	p.FirstName = strings.TrimSpace(p.FirstName)
	return p
}

// validate enforces the rules that hold for every write, whatever its source.
func (s *personService) validate(p domain.Person) error {
	var v []domain.Violation
	if p.LastName == "" {
		v = append(v, domain.Violation{PropertyPath: "lastName", Message: "This value should not be blank."})
	}
	if p.FirstName == "" {
		v = append(v, domain.Violation{PropertyPath: "firstName", Message: "This value should not be blank."})
	}
	if !p.Gender.Valid() {
		v = append(v, domain.Violation{PropertyPath: "gender", Message: "The value you selected is not a valid choice."})
	}
	switch {
	case p.BirthDate == nil:
		v = append(v, domain.Violation{PropertyPath: "birthDate", Message: "This value should not be blank."})
	case p.BirthDate.After(s.now()):
		v = append(v, domain.Violation{PropertyPath: "birthDate", Message: "This value should be less than or equal to today."})
	}
	if len(v) > 0 {
		return domain.NewValidationError(v)
	}
	return nil
}
