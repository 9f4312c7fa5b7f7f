package people

import (
	"context"
	"errors"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"

	"github.com/simp-lee/peopleadmin/internal/domain"
	"github.com/simp-lee/peopleadmin/internal/pkg"
)

const seedBatchSize = 100

// Fake returns count random people. A seed of 0 picks a random seed.
func Fake(count int, seed int64) []domain.Person {
	f := gofakeit.New(seed)
	oldest := time.Date(1930, 1, 1, 0, 0, 0, 0, time.UTC)
	youngest := time.Now().UTC().AddDate(-18, 0, 0)

	out := make([]domain.Person, 0, count)
	for i := 0; i < count; i++ {
		g := domain.GenderMale
		if f.Gender() == "female" {
			g = domain.GenderFemale
		}
		d := f.DateRange(oldest, youngest)
		d = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
		out = append(out, domain.Person{
			LastName:  f.LastName(),
			FirstName: f.FirstName(),
			Gender:    g,
			BirthDate: &d,
		})
	}
	return out
}

// Seed inserts count fake people in a single transaction.
func Seed(ctx context.Context, db *gorm.DB, count int, seed int64) (int, error) {
	if db == nil {
		return 0, errors.New("database is nil")
	}
	if count <= 0 {
		return 0, nil
	}
	people := Fake(count, seed)
	err := pkg.WithTx(ctx, db, func(tx *gorm.DB) error {
		return tx.CreateInBatches(&people, seedBatchSize).Error
	})
	if err != nil {
		return 0, mapError(err)
	}
	return len(people), nil
}
