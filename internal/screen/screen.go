// Package screen holds the view-models behind the people pages. Each screen
// is a small state machine driven by user actions and API answers; rendering
// is left to the caller.
package screen

import (
	"context"
	"errors"

	"github.com/simp-lee/peopleadmin/internal/domain"
	"github.com/simp-lee/peopleadmin/internal/hydra"
)

// Status is the lifecycle state of a screen.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusLoaded
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusLoaded:
		return "loaded"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// ErrStale is returned when a response arrived after a newer request was issued.
// The response was discarded.
var ErrStale = errors.New("screen: stale response discarded")

// PeopleAPI is the slice of the resource client the screens use.
// *hydra.Resource[domain.Person] satisfies it.
type PeopleAPI interface {
	FindAll(ctx context.Context, page, perPage int, order domain.SortSpec) (*hydra.Collection[domain.Person], error)
	FindOne(ctx context.Context, id string) (*domain.Person, error)
	Post(ctx context.Context, body domain.Person) (*domain.Person, error)
	Put(ctx context.Context, id string, body domain.Person) (*domain.Person, error)
	Delete(ctx context.Context, id string) error
}

var _ PeopleAPI = (*hydra.Resource[domain.Person])(nil)

// Level is the severity of a toast.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Toast is a transient notification.
type Toast struct {
	Level   Level  `json:"type"`
	Message string `json:"message"`
}

// Notifier receives toasts produced by screens.
type Notifier interface {
	Notify(Toast)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Toast)

// Notify calls f(t).
func (f NotifierFunc) Notify(t Toast) { f(t) }

// Navigator moves the user to another page, replacing the current history entry.
type Navigator interface {
	Replace(path string)
}
