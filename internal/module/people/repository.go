package people

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/simp-lee/peopleadmin/internal/domain"
	"github.com/simp-lee/peopleadmin/internal/pkg"
)

// sortColumns maps API order fields to table columns.
var sortColumns = map[string]string{
	"id":        "id",
	"lastName":  "last_name",
	"firstName": "first_name",
	"gender":    "gender",
	"birthDate": "birth_date",
}

// SortFields lists the API fields accepted in order[...] parameters.
var SortFields = []string{"id", "lastName", "firstName", "gender", "birthDate"}

// personRepository implements domain.PersonRepository using GORM.
type personRepository struct {
	db *gorm.DB
}

// NewPersonRepository creates a new PersonRepository backed by the given GORM database.
func NewPersonRepository(db *gorm.DB) domain.PersonRepository {
	return &personRepository{db: db}
}

// Create inserts a new person into the database.
func (r *personRepository) Create(ctx context.Context, p *domain.Person) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		return mapError(err)
	}
	return nil
}

// GetByID retrieves a person by its primary key.
func (r *personRepository) GetByID(ctx context.Context, id uint) (*domain.Person, error) {
	var p domain.Person
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, mapError(err)
	}
	return &p, nil
}

// List returns one ordered page of people. The primary key breaks ties so
// that pages never overlap.
func (r *personRepository) List(ctx context.Context, req domain.PageRequest) (*domain.PageResult[domain.Person], error) {
	var total int64
	base := r.db.WithContext(ctx).Model(&domain.Person{})

	if err := base.Count(&total).Error; err != nil {
		return nil, mapError(err)
	}

	var people []domain.Person
	if err := base.Scopes(
		pkg.Sort(req, sortColumns),
		byID(req),
		pkg.Paginate(req),
	).Find(&people).Error; err != nil {
		return nil, mapError(err)
	}

	return pkg.NewPageResult(people, total, req), nil
}

// byID appends the primary key to the order unless it is already present.
func byID(req domain.PageRequest) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if req.Order.Has("id") {
			return db
		}
		return db.Order("id")
	}
}

// Update saves every column of an existing person.
func (r *personRepository) Update(ctx context.Context, p *domain.Person) error {
	if err := r.db.WithContext(ctx).Save(p).Error; err != nil {
		return mapError(err)
	}
	return nil
}

// Delete removes a person by ID.
func (r *personRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&domain.Person{}, id)
	if result.Error != nil {
		return mapError(result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// mapError converts GORM errors to domain errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	return domain.NewAppError(domain.CodeInternal, "database error", err)
}
