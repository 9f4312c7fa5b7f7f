package screen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strconv"
	"strings"
	"time"

	"github.com/simp-lee/peopleadmin/internal/domain"
	"github.com/simp-lee/peopleadmin/internal/hydra"
)

// NewID is the route id that selects create mode.
const NewID = "new"

// DateLayout is the wire and input format of birth dates.
const DateLayout = "2006-01-02"

// Toast messages emitted by the form screen.
const (
	MsgNotFound    = "Person not found"
	MsgCreated     = "Person created"
	MsgUpdated     = "Person updated"
	MsgInvalid     = "An error occurred"
	MsgSaveFailed  = "Saving the person failed"
	defaultListURL = "/people"
)

// Form field names, matching the API property paths.
const (
	FieldLastName  = "lastName"
	FieldFirstName = "firstName"
	FieldGender    = "gender"
	FieldBirthDate = "birthDate"
)

// Fields lists the editable fields in display order.
var Fields = []string{FieldLastName, FieldFirstName, FieldGender, FieldBirthDate}

var (
	// ErrUnknownField is returned by SetField for names outside Fields.
	ErrUnknownField = errors.New("screen: unknown field")
	// ErrBusy is returned when an action is attempted while a request is in flight.
	ErrBusy = errors.New("screen: request in flight")
)

// Mode tells whether a form creates or edits.
type Mode int

const (
	ModeCreate Mode = iota
	ModeEdit
)

// FieldErrors maps a property path to its validation message.
type FieldErrors map[string]string

// FormOptions configures a FormScreen.
type FormOptions struct {
	// ListPath is where the form navigates after a create or a failed load.
	ListPath string
	Logger   *slog.Logger
}

// FormScreen is the create/edit form of one person. It is meant to live for
// the duration of one user action and is not safe for concurrent use.
type FormScreen struct {
	api      PeopleAPI
	notify   Notifier
	nav      Navigator
	logger   *slog.Logger
	listPath string

	id     string
	mode   Mode
	status Status
	person domain.Person
	errors FieldErrors
}

// NewFormScreen creates a form for the route id; NewID selects create mode.
func NewFormScreen(id string, api PeopleAPI, notify Notifier, nav Navigator, opts FormOptions) *FormScreen {
	if notify == nil {
		notify = NotifierFunc(func(Toast) {})
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	listPath := opts.ListPath
	if listPath == "" {
		listPath = defaultListURL
	}
	id = strings.TrimSpace(id)
	mode := ModeEdit
	if id == "" || id == NewID {
		id = NewID
		mode = ModeCreate
	}
	return &FormScreen{
		api:      api,
		notify:   notify,
		nav:      nav,
		logger:   logger,
		listPath: listPath,
		id:       id,
		mode:     mode,
		status:   StatusIdle,
		errors:   FieldErrors{},
	}
}

// ID returns the route id ("new" in create mode).
func (f *FormScreen) ID() string { return f.id }

// Mode returns the form mode.
func (f *FormScreen) Mode() Mode { return f.mode }

// Editing reports whether the form edits an existing person.
func (f *FormScreen) Editing() bool { return f.mode == ModeEdit }

// Status returns the current state.
func (f *FormScreen) Status() Status { return f.status }

// Person returns the record being edited.
func (f *FormScreen) Person() domain.Person { return f.person }

// Errors returns a copy of the field error map.
func (f *FormScreen) Errors() FieldErrors { return maps.Clone(f.errors) }

// BirthDateValue formats the birth date for a date input.
func (f *FormScreen) BirthDateValue() string {
	if f.person.BirthDate == nil {
		return ""
	}
	return f.person.BirthDate.Format(DateLayout)
}

// Mount prepares the form. In edit mode it loads the record; if that fails
// the user is told and sent back to the list.
func (f *FormScreen) Mount(ctx context.Context) error {
	if f.status == StatusLoading {
		return ErrBusy
	}
	if f.mode == ModeCreate {
		f.status = StatusLoaded
		return nil
	}

	f.status = StatusLoading
	p, err := f.api.FindOne(ctx, f.id)
	if err != nil {
		f.status = StatusError
		f.logger.WarnContext(ctx, "load person failed", slog.String("id", f.id), slog.Any("error", err))
		f.notify.Notify(Toast{Level: LevelError, Message: MsgNotFound})
		if f.nav != nil {
			f.nav.Replace(f.listPath)
		}
		return err
	}
	f.person = domain.Person{
		ID:        p.ID,
		LastName:  p.LastName,
		FirstName: p.FirstName,
		Gender:    p.Gender,
		BirthDate: p.BirthDate,
	}
	f.status = StatusLoaded
	return nil
}

// SetField applies one edit. Gender is coerced to an integer (0 when not
// numeric). Birth dates use DateLayout; an empty value clears the date and an
// unparsable one clears it and records a field error.
func (f *FormScreen) SetField(name, value string) error {
	switch name {
	case FieldLastName:
		f.person.LastName = value
	case FieldFirstName:
		f.person.FirstName = value
	case FieldGender:
		g, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			g = 0
		}
		f.person.Gender = domain.Gender(g)
	case FieldBirthDate:
		value = strings.TrimSpace(value)
		if value == "" {
			f.person.BirthDate = nil
			return nil
		}
		t, err := time.Parse(DateLayout, value)
		if err != nil {
			f.person.BirthDate = nil
			f.errors[FieldBirthDate] = "This value is not a valid date."
			return fmt.Errorf("parse %s: %w", FieldBirthDate, err)
		}
		f.SetBirthDate(&t)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return nil
}

// SetBirthDate sets or clears the birth date.
func (f *FormScreen) SetBirthDate(t *time.Time) {
	if t == nil {
		f.person.BirthDate = nil
		return
	}
	d := t.UTC()
	f.person.BirthDate = &d
}

// Submit creates or replaces the record. On success field errors are cleared
// and, for a create, the user is sent to the list. Violations reported by the
// API are mapped to field errors; any other failure only raises a toast.
func (f *FormScreen) Submit(ctx context.Context) error {
	if f.status == StatusLoading {
		return ErrBusy
	}
	f.status = StatusLoading

	body := f.person
	var (
		saved *domain.Person
		err   error
	)
	if f.mode == ModeEdit {
		saved, err = f.api.Put(ctx, f.id, body)
	} else {
		body.ID = 0
		saved, err = f.api.Post(ctx, body)
	}

	if err != nil {
		f.status = StatusError
		if he, ok := hydra.AsError(err); ok && he.HasViolations() {
			f.errors = make(FieldErrors, len(he.Violations))
			for _, v := range he.Violations {
				f.errors[v.PropertyPath] = v.Message
			}
			f.notify.Notify(Toast{Level: LevelError, Message: MsgInvalid})
			return err
		}
		f.logger.WarnContext(ctx, "save person failed",
			slog.String("id", f.id),
			slog.Any("error", err),
		)
		f.notify.Notify(Toast{Level: LevelError, Message: MsgSaveFailed})
		return err
	}

	f.status = StatusLoaded
	if saved != nil {
		f.person.ID = saved.ID
	}
	f.errors = FieldErrors{}
	if f.mode == ModeEdit {
		f.notify.Notify(Toast{Level: LevelSuccess, Message: MsgUpdated})
		return nil
	}
	f.notify.Notify(Toast{Level: LevelSuccess, Message: MsgCreated})
	if f.nav != nil {
		f.nav.Replace(f.listPath)
	}
	return nil
}
