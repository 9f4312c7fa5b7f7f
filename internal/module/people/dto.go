package people

import (
	"time"

	"github.com/simp-lee/peopleadmin/internal/domain"
)

// dateLayouts are the accepted birthDate encodings, full timestamps first.
var dateLayouts = []string{time.RFC3339, "2006-01-02"}

// PersonRequest is the body of POST and PUT requests.
type PersonRequest struct {
	LastName  string `json:"lastName" binding:"required,min=2,max=255"`
	FirstName string `json:"firstName" binding:"required,min=2,max=255"`
	Gender    int    `json:"gender" binding:"oneof=1 2"`
	BirthDate string `json:"birthDate" binding:"required"`
}

// toPerson converts the request into a Person. An unparseable date yields
// a birthDate violation.
func (r PersonRequest) toPerson() (domain.Person, error) {
	p := domain.Person{
		LastName:  r.LastName,
		FirstName: r.FirstName,
		Gender:    domain.Gender(r.Gender),
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, r.BirthDate); err == nil {
			d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			p.BirthDate = &d
			return p, nil
		}
	}
	return p, domain.NewValidationError([]domain.Violation{
		{PropertyPath: "birthDate", Message: "This value is not a valid date."},
	})
}

// personResource is a Person with its JSON-LD identity.
type personResource struct {
	Context string `json:"@context,omitempty"`
	IRI     string `json:"@id"`
	Type    string `json:"@type"`
	domain.Person
}

func newResource(basePath string, p domain.Person, withContext bool) personResource {
	r := personResource{
		IRI:    basePath + "/" + uitoa(p.ID),
		Type:   "Person",
		Person: p,
	}
	if withContext {
		r.Context = "/api/contexts/Person"
	}
	return r
}
