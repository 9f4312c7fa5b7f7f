package screen

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/simp-lee/peopleadmin/internal/domain"
)

func TestNewFormScreen_Mode(t *testing.T) {
	tests := []struct {
		id   string
		mode Mode
	}{
		{"new", ModeCreate},
		{"", ModeCreate},
		{"12", ModeEdit},
	}
	for _, tt := range tests {
		f := NewFormScreen(tt.id, newFakeAPI(0), nil, nil, FormOptions{})
		if f.Mode() != tt.mode {
			t.Errorf("id %q: Mode = %v; want %v", tt.id, f.Mode(), tt.mode)
		}
	}
}

func TestFormScreen_MountEditLoadsRecord(t *testing.T) {
	api := newFakeAPI(2)
	birth := time.Date(1990, 5, 1, 0, 0, 0, 0, time.UTC)
	api.people[2] = domain.Person{ID: 2, LastName: "Doe", FirstName: "Jane", Gender: domain.GenderFemale, BirthDate: &birth}

	f := NewFormScreen("2", api, nil, nil, FormOptions{})
	if err := f.Mount(context.Background()); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	if f.Status() != StatusLoaded {
		t.Errorf("Status = %v; want loaded", f.Status())
	}
	p := f.Person()
	if p.LastName != "Doe" || p.FirstName != "Jane" || p.Gender != domain.GenderFemale {
		t.Errorf("Person = %+v", p)
	}
	if f.BirthDateValue() != "1990-05-01" {
		t.Errorf("BirthDateValue = %q", f.BirthDateValue())
	}
}

func TestFormScreen_MountMissingRecordRedirects(t *testing.T) {
	rec := &Recorder{}
	f := NewFormScreen("999", newFakeAPI(1), rec, rec, FormOptions{ListPath: "/people"})

	if err := f.Mount(context.Background()); err == nil {
		t.Fatal("Mount should fail for a missing record")
	}
	if f.Status() != StatusError {
		t.Errorf("Status = %v; want error", f.Status())
	}
	if rec.Target() != "/people" {
		t.Errorf("navigated to %q; want /people", rec.Target())
	}
	toasts := rec.Toasts()
	if len(toasts) != 1 || toasts[0].Level != LevelError || toasts[0].Message != MsgNotFound {
		t.Errorf("toasts = %+v", toasts)
	}
}

func TestFormScreen_MountCreateDoesNotFetch(t *testing.T) {
	api := newFakeAPI(0)
	api.findOneErr = errBoom
	f := NewFormScreen(NewID, api, nil, nil, FormOptions{})
	if err := f.Mount(context.Background()); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	if f.Status() != StatusLoaded {
		t.Errorf("Status = %v; want loaded", f.Status())
	}
}

func TestFormScreen_SetField(t *testing.T) {
	f := NewFormScreen(NewID, newFakeAPI(0), nil, nil, FormOptions{})

	for name, value := range map[string]string{
		FieldLastName:  "Doe",
		FieldFirstName: "John",
		FieldGender:    "2",
		FieldBirthDate: "1985-12-24",
	} {
		if err := f.SetField(name, value); err != nil {
			t.Fatalf("SetField(%s): %v", name, err)
		}
	}
	p := f.Person()
	if p.LastName != "Doe" || p.FirstName != "John" || p.Gender != domain.GenderFemale {
		t.Errorf("Person = %+v", p)
	}
	if p.BirthDate == nil || !p.BirthDate.Equal(time.Date(1985, 12, 24, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("BirthDate = %v", p.BirthDate)
	}

	if err := f.SetField(FieldGender, "abc"); err != nil {
		t.Fatal(err)
	}
	if f.Person().Gender != 0 {
		t.Errorf("non-numeric gender should coerce to 0, got %d", f.Person().Gender)
	}

	if err := f.SetField(FieldBirthDate, ""); err != nil || f.Person().BirthDate != nil {
		t.Errorf("empty birth date should clear the field")
	}
	if err := f.SetField(FieldBirthDate, "24/12/1985"); err == nil {
		t.Error("invalid date should fail")
	}
	if _, ok := f.Errors()[FieldBirthDate]; !ok {
		t.Error("invalid date should be recorded as a field error")
	}

	if err := f.SetField("email", "x"); !errors.Is(err, ErrUnknownField) {
		t.Errorf("unknown field error = %v", err)
	}
}

func TestFormScreen_SubmitCreateWithViolations(t *testing.T) {
	api := newFakeAPI(0)
	api.postErr = violationsErr(
		domain.Violation{PropertyPath: "lastName", Message: "This value should not be blank."},
		domain.Violation{PropertyPath: "gender", Message: "The value you selected is not a valid choice."},
	)
	rec := &Recorder{}
	f := NewFormScreen(NewID, api, rec, rec, FormOptions{})

	if err := f.Submit(context.Background()); err == nil {
		t.Fatal("Submit should fail")
	}
	errs := f.Errors()
	if len(errs) != 2 {
		t.Fatalf("Errors = %v; want 2 entries", errs)
	}
	if errs["lastName"] != "This value should not be blank." {
		t.Errorf("lastName error = %q", errs["lastName"])
	}
	if rec.Target() != "" {
		t.Errorf("must not navigate on validation failure, went to %q", rec.Target())
	}
	toasts := rec.Toasts()
	if len(toasts) != 1 || toasts[0].Level != LevelError {
		t.Errorf("toasts = %+v", toasts)
	}
	if f.Status() != StatusError {
		t.Errorf("Status = %v; want error", f.Status())
	}
}

func TestFormScreen_SubmitCreateSuccess(t *testing.T) {
	api := newFakeAPI(0)
	api.postErr = violationsErr(domain.Violation{PropertyPath: "firstName", Message: "too short"})
	rec := &Recorder{}
	f := NewFormScreen(NewID, api, rec, rec, FormOptions{ListPath: "/people"})

	_ = f.SetField(FieldLastName, "Doe")
	_ = f.SetField(FieldFirstName, "J")
	_ = f.Submit(context.Background())
	if len(f.Errors()) == 0 {
		t.Fatal("precondition: errors should be set")
	}

	api.postErr = nil
	_ = f.SetField(FieldFirstName, "John")
	if err := f.Submit(context.Background()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(f.Errors()) != 0 {
		t.Errorf("Errors should be cleared, got %v", f.Errors())
	}
	if f.Status() != StatusLoaded {
		t.Errorf("Status after retry = %v; want loaded", f.Status())
	}
	if rec.Target() != "/people" {
		t.Errorf("navigated to %q; want /people", rec.Target())
	}
	if f.Person().ID == 0 {
		t.Error("created id should be kept")
	}
	toasts := rec.Toasts()
	if last := toasts[len(toasts)-1]; last.Level != LevelSuccess || last.Message != MsgCreated {
		t.Errorf("last toast = %+v", last)
	}
	if len(api.posts) != 2 || api.posts[1].FirstName != "John" {
		t.Errorf("posts = %+v", api.posts)
	}
}

func TestFormScreen_SubmitUpdate(t *testing.T) {
	api := newFakeAPI(3)
	rec := &Recorder{}
	f := NewFormScreen("3", api, rec, rec, FormOptions{})
	if err := f.Mount(context.Background()); err != nil {
		t.Fatal(err)
	}
	_ = f.SetField(FieldLastName, "Renamed")

	if err := f.Submit(context.Background()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if rec.Target() != "" {
		t.Errorf("update must not navigate, went to %q", rec.Target())
	}
	if api.people[3].LastName != "Renamed" {
		t.Errorf("stored LastName = %q", api.people[3].LastName)
	}
	if len(api.puts) != 1 || api.puts[0].FirstName != "First" {
		t.Errorf("PUT should carry the full record, got %+v", api.puts)
	}
	toasts := rec.Toasts()
	if len(toasts) != 1 || toasts[0].Message != MsgUpdated {
		t.Errorf("toasts = %+v", toasts)
	}
}

func TestFormScreen_SubmitFailureWithoutViolations(t *testing.T) {
	api := newFakeAPI(1)
	api.putErr = errBoom
	rec := &Recorder{}
	f := NewFormScreen("1", api, rec, rec, FormOptions{})
	f.errors["lastName"] = "stale"

	if err := f.Submit(context.Background()); !errors.Is(err, errBoom) {
		t.Fatalf("Submit error = %v; want errBoom", err)
	}
	toasts := rec.Toasts()
	if len(toasts) != 1 || toasts[0].Level != LevelError || toasts[0].Message != MsgSaveFailed {
		t.Errorf("toasts = %+v; want a generic error toast", toasts)
	}
	if f.Errors()["lastName"] != "stale" {
		t.Error("field errors must be left untouched on a non-violation failure")
	}
	if f.Status() != StatusError {
		t.Errorf("Status = %v; want error", f.Status())
	}
}
