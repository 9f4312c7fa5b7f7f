package domain

import (
	"context"
	"time"
)

// Gender is the numeric gender code used by the people API.
type Gender int

const (
	GenderUnset  Gender = 0
	GenderMale   Gender = 1
	GenderFemale Gender = 2
)

// Valid reports whether g is one of the accepted codes.
func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale
}

// Short returns the one-letter label shown in list views.
func (g Gender) Short() string {
	switch g {
	case GenderMale:
		return "M"
	case GenderFemale:
		return "F"
	default:
		return ""
	}
}

// Person is the managed resource.
type Person struct {
	ID        uint       `gorm:"primaryKey" json:"id,omitempty"`
	LastName  string     `gorm:"size:255;not null" json:"lastName"`
	FirstName string     `gorm:"size:255;not null" json:"firstName"`
	Gender    Gender     `gorm:"not null" json:"gender"`
	BirthDate *time.Time `json:"birthDate"`
}

// TableName pins the table name to the collection name.
func (Person) TableName() string {
	return "people"
}

// PersonRepository defines the data access interface for people.
type PersonRepository interface {
	Create(ctx context.Context, person *Person) error
	GetByID(ctx context.Context, id uint) (*Person, error)
	List(ctx context.Context, req PageRequest) (*PageResult[Person], error)
	Update(ctx context.Context, person *Person) error
	Delete(ctx context.Context, id uint) error
}

// PersonService defines the business logic interface for people.
type PersonService interface {
	CreatePerson(ctx context.Context, in Person) (*Person, error)
	GetPerson(ctx context.Context, id uint) (*Person, error)
	ListPeople(ctx context.Context, req PageRequest) (*PageResult[Person], error)
	ReplacePerson(ctx context.Context, id uint, in Person) (*Person, error)
	DeletePerson(ctx context.Context, id uint) error
}
