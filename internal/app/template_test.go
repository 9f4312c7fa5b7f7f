package app

import (
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/simp-lee/peopleadmin/internal/domain"
	"github.com/simp-lee/peopleadmin/internal/screen"
	"github.com/simp-lee/peopleadmin/web"
)

// testFS returns an in-memory filesystem suitable for testing template rendering.
// It mirrors the expected web/templates/ directory layout with a base layout,
// a partial, and two page templates (people list and error).
func testFS() fstest.MapFS {
	return fstest.MapFS{
		"templates/layouts/base.html": &fstest.MapFile{
			Data: []byte(
				`{{ define "base" }}<!DOCTYPE html><html>` +
					`<head><title>{{ block "title" . }}Default{{ end }}</title></head>` +
					`<body>{{ block "nav" . }}{{ end }}{{ block "content" . }}{{ end }}</body>` +
					`</html>{{ end }}`),
		},
		"templates/partials/nav.html": &fstest.MapFile{
			Data: []byte(`{{ define "nav" }}<nav>Navigation</nav>{{ end }}`),
		},
		"templates/people/list.html": &fstest.MapFile{
			Data: []byte(
				`{{ template "base" . }}` +
					`{{ define "title" }}People{{ end }}` +
					`{{ define "content" }}<h1>People List</h1>{{ template "nav" . }}{{ end }}`),
		},
		"templates/errors/404.html": &fstest.MapFile{
			Data: []byte(
				`{{ template "base" . }}` +
					`{{ define "title" }}Not Found{{ end }}` +
					`{{ define "content" }}<h1>404 Not Found</h1>{{ end }}`),
		},
	}
}

// testFSWithFuncs returns a test filesystem that uses template functions
// (formatDate, gender, sortDir, isPrimarySort, add, sub, seq) in the page template.
func testFSWithFuncs() fstest.MapFS {
	base := testFS()
	base["templates/functest/page.html"] = &fstest.MapFile{
		Data: []byte(
			`{{ template "base" . }}` +
				`{{ define "content" }}` +
				`date:{{ formatDate .Date }}|` +
				`gender:{{ gender .Gender }}|` +
				`dir:{{ sortDir .Sort "firstName" }}|` +
				`primary:{{ isPrimarySort .Sort "lastName" }}|` +
				`add:{{ add 3 4 }}|` +
				`sub:{{ sub 10 3 }}|` +
				`seq:{{ range seq 1 3 }}{{ . }}{{ end }}` +
				`{{ end }}`),
	}
	return base
}

// ---------------------------------------------------------------------------
// Template function tests
// ---------------------------------------------------------------------------

func TestTemplateFuncMap(t *testing.T) {
	fm := templateFuncMap()

	t.Run("formatDate", func(t *testing.T) {
		fn := fm["formatDate"].(func(*time.Time) string)
		d := time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)
		if got := fn(&d); got != "05/03/2024" {
			t.Errorf("formatDate() = %q; want %q", got, "05/03/2024")
		}
		if got := fn(nil); got != "" {
			t.Errorf("formatDate(nil) = %q; want empty", got)
		}
	})

	t.Run("gender", func(t *testing.T) {
		fn := fm["gender"].(func(domain.Gender) string)
		if got := fn(domain.GenderMale); got != "M" {
			t.Errorf("gender(male) = %q; want M", got)
		}
		if got := fn(domain.GenderFemale); got != "F" {
			t.Errorf("gender(female) = %q; want F", got)
		}
	})

	t.Run("sortDir", func(t *testing.T) {
		fn := fm["sortDir"].(func(domain.SortSpec, string) string)
		spec := domain.ParseSortSpec("lastName:asc,firstName:desc")
		if got := fn(spec, "firstName"); got != "desc" {
			t.Errorf("sortDir(firstName) = %q; want desc", got)
		}
		if got := fn(spec, "gender"); got != "" {
			t.Errorf("sortDir(gender) = %q; want empty", got)
		}
	})

	t.Run("toggleSort", func(t *testing.T) {
		fn := fm["toggleSort"].(func(domain.SortSpec, string) string)
		spec := domain.ParseSortSpec("lastName:asc,firstName:desc")
		if got := fn(spec, "lastName"); got != "lastName:desc,firstName:desc" {
			t.Errorf("toggleSort(lastName) = %q", got)
		}
		if got := fn(spec, "gender"); got != "gender:asc,lastName:asc,firstName:desc" {
			t.Errorf("toggleSort(gender) = %q", got)
		}
		if got := fn(nil, "birthDate"); got != "birthDate:asc" {
			t.Errorf("toggleSort on empty spec = %q", got)
		}
	})

	t.Run("isPrimarySort", func(t *testing.T) {
		fn := fm["isPrimarySort"].(func(domain.SortSpec, string) bool)
		spec := domain.ParseSortSpec("lastName:asc,firstName:desc")
		if !fn(spec, "lastName") {
			t.Error("isPrimarySort(lastName) = false; want true")
		}
		if fn(spec, "firstName") {
			t.Error("isPrimarySort(firstName) = true; want false")
		}
		if fn(nil, "lastName") {
			t.Error("isPrimarySort on empty spec = true; want false")
		}
	})

	t.Run("add", func(t *testing.T) {
		fn := fm["add"].(func(int, int) int)
		if got := fn(3, 4); got != 7 {
			t.Errorf("add(3,4) = %d; want 7", got)
		}
	})

	t.Run("sub", func(t *testing.T) {
		fn := fm["sub"].(func(int, int) int)
		if got := fn(10, 3); got != 7 {
			t.Errorf("sub(10,3) = %d; want 7", got)
		}
	})

	t.Run("seq", func(t *testing.T) {
		fn := fm["seq"].(func(int, int) []int)

		got := fn(1, 5)
		want := []int{1, 2, 3, 4, 5}
		if len(got) != len(want) {
			t.Fatalf("seq(1,5) len = %d; want %d", len(got), len(want))
		}
		for i, v := range got {
			if v != want[i] {
				t.Errorf("seq(1,5)[%d] = %d; want %d", i, v, want[i])
			}
		}

		if got := fn(5, 1); got != nil {
			t.Errorf("seq(5,1) = %v; want nil", got)
		}
	})
}

// ---------------------------------------------------------------------------
// NewTemplateRenderer tests
// ---------------------------------------------------------------------------

func TestNewTemplateRenderer_Release(t *testing.T) {
	r, err := NewTemplateRenderer(testFS(), false)
	if err != nil {
		t.Fatalf("NewTemplateRenderer() error: %v", err)
	}
	if r.debug {
		t.Error("expected debug=false")
	}
	if r.templates == nil {
		t.Fatal("templates map should be initialized in release mode")
	}
	if _, ok := r.templates["people/list.html"]; !ok {
		t.Error("expected template 'people/list.html' to be loaded")
	}
	if _, ok := r.templates["errors/404.html"]; !ok {
		t.Error("expected template 'errors/404.html' to be loaded")
	}
}

func TestNewTemplateRenderer_Debug(t *testing.T) {
	r, err := NewTemplateRenderer(testFS(), true)
	if err != nil {
		t.Fatalf("NewTemplateRenderer() error: %v", err)
	}
	if !r.debug {
		t.Error("expected debug=true")
	}
	if r.templates != nil {
		t.Error("templates should be nil in debug mode (parsed on each request)")
	}
}

func TestNewTemplateRenderer_InvalidTemplate(t *testing.T) {
	badFS := fstest.MapFS{
		"templates/layouts/base.html": &fstest.MapFile{
			Data: []byte(`{{ define "base" }}{{ end }}`),
		},
		"templates/bad/page.html": &fstest.MapFile{
			Data: []byte(`{{ invalid_syntax `),
		},
	}
	_, err := NewTemplateRenderer(badFS, false)
	if err == nil {
		t.Fatal("expected error for invalid template syntax")
	}
}

// ---------------------------------------------------------------------------
// Instance + Render tests
// ---------------------------------------------------------------------------

func TestTemplateRenderer_Instance_Release(t *testing.T) {
	r, err := NewTemplateRenderer(testFS(), false)
	if err != nil {
		t.Fatalf("NewTemplateRenderer() error: %v", err)
	}

	inst := r.Instance("people/list.html", nil)
	w := httptest.NewRecorder()
	if err := inst.Render(w); err != nil {
		t.Fatalf("Render() error: %v", err)
	}

	body := w.Body.String()
	for _, want := range []string{
		"<title>People</title>",
		"<h1>People List</h1>",
		"<nav>Navigation</nav>",
		"<!DOCTYPE html>",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q:\n%s", want, body)
		}
	}
}

func TestTemplateRenderer_Instance_Debug(t *testing.T) {
	r, err := NewTemplateRenderer(testFS(), true)
	if err != nil {
		t.Fatalf("NewTemplateRenderer() error: %v", err)
	}

	inst := r.Instance("errors/404.html", nil)
	w := httptest.NewRecorder()
	if err := inst.Render(w); err != nil {
		t.Fatalf("Render() error: %v", err)
	}

	body := w.Body.String()
	for _, want := range []string{
		"<title>Not Found</title>",
		"<h1>404 Not Found</h1>",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q:\n%s", want, body)
		}
	}
}

func TestTemplateRenderer_Instance_NotFound(t *testing.T) {
	r, err := NewTemplateRenderer(testFS(), false)
	if err != nil {
		t.Fatalf("NewTemplateRenderer() error: %v", err)
	}

	inst := r.Instance("nonexistent.html", nil)
	w := httptest.NewRecorder()
	if err := inst.Render(w); err == nil {
		t.Error("Render() should return error for nonexistent template")
	}
}

func TestTemplateRenderer_Instance_WithFuncMap(t *testing.T) {
	r, err := NewTemplateRenderer(testFSWithFuncs(), false)
	if err != nil {
		t.Fatalf("NewTemplateRenderer() error: %v", err)
	}

	date := time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)
	data := map[string]any{
		"Date":   &date,
		"Gender": domain.GenderMale,
		"Sort":   domain.ParseSortSpec("lastName:asc,firstName:desc"),
	}
	inst := r.Instance("functest/page.html", data)
	w := httptest.NewRecorder()
	if err := inst.Render(w); err != nil {
		t.Fatalf("Render() error: %v", err)
	}

	body := w.Body.String()
	for _, want := range []string{
		"date:15/06/2024",
		"gender:M",
		"dir:desc",
		"primary:true",
		"add:7",
		"sub:7",
		"seq:123",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q:\n%s", want, body)
		}
	}
}

// ---------------------------------------------------------------------------
// HTMLInstance tests
// ---------------------------------------------------------------------------

func TestHTMLInstance_WriteContentType(t *testing.T) {
	w := httptest.NewRecorder()
	h := &HTMLInstance{}
	h.WriteContentType(w)

	got := w.Header().Get("Content-Type")
	want := "text/html; charset=utf-8"
	if got != want {
		t.Errorf("Content-Type = %q; want %q", got, want)
	}
}

func TestHTMLInstance_WriteContentType_NoOverwrite(t *testing.T) {
	w := httptest.NewRecorder()
	w.Header().Set("Content-Type", "application/json")

	h := &HTMLInstance{}
	h.WriteContentType(w)

	got := w.Header().Get("Content-Type")
	if got != "application/json" {
		t.Errorf("Content-Type should not be overwritten; got %q", got)
	}
}

func TestHTMLInstance_Render_ParseError(t *testing.T) {
	w := httptest.NewRecorder()
	h := &HTMLInstance{err: fmt.Errorf("parse error")}

	err := h.Render(w)
	if err == nil {
		t.Fatal("expected error from Render")
	}
	if !strings.Contains(err.Error(), "parse error") {
		t.Errorf("error = %q; want to contain 'parse error'", err.Error())
	}
}

// ---------------------------------------------------------------------------
// discoverPageTemplates test
// ---------------------------------------------------------------------------

func TestDiscoverPageTemplates(t *testing.T) {
	r := &TemplateRenderer{fs: testFS()}

	pages, err := r.discoverPageTemplates()
	if err != nil {
		t.Fatalf("discoverPageTemplates() error: %v", err)
	}

	// Should find people/list.html and errors/404.html but not layouts or partials.
	wantPaths := map[string]bool{
		"templates/people/list.html":  false,
		"templates/errors/404.html": false,
	}
	for _, p := range pages {
		if _, ok := wantPaths[p]; ok {
			wantPaths[p] = true
		}
	}
	for p, found := range wantPaths {
		if !found {
			t.Errorf("expected page %q to be discovered", p)
		}
	}

	// Layouts and partials must NOT appear.
	for _, p := range pages {
		rel := strings.TrimPrefix(p, "templates/")
		if strings.HasPrefix(rel, "layouts/") || strings.HasPrefix(rel, "partials/") {
			t.Errorf("base template %q should not be in page list", p)
		}
	}
}

// ---------------------------------------------------------------------------
// Embedded web templates
// ---------------------------------------------------------------------------

func TestEmbeddedTemplates_Parse(t *testing.T) {
	r, err := NewTemplateRenderer(web.EmbeddedFS, false)
	if err != nil {
		t.Fatalf("NewTemplateRenderer(web.EmbeddedFS) error: %v", err)
	}
	for _, name := range []string{
		"people/list.html",
		"people/table.html",
		"people/form.html",
		"people/form_partial.html",
		"errors/400.html",
		"errors/404.html",
		"errors/500.html",
	} {
		if _, ok := r.templates[name]; !ok {
			t.Errorf("embedded template %q missing", name)
		}
	}
}

func embeddedListData(loading bool) map[string]any {
	born := time.Date(1990, 7, 4, 0, 0, 0, 0, time.UTC)
	return map[string]any{
		"View": screen.ListView{
			Items: []domain.Person{
				{ID: 7, LastName: "Doe", FirstName: "Jane", Gender: domain.GenderFemale, BirthDate: &born},
			},
			TotalCount:     12,
			CurrentPage:    1,
			PageSize:       10,
			TotalPages:     2,
			Sort:           domain.ParseSortSpec("lastName:asc"),
			ShowPagination: true,
		},
		"Loading":   loading,
		"Columns":   []struct{ Field, Label string }{{"lastName", "Last name"}, {"gender", "Gender"}},
		"PageSizes": []int{10, 30, 50},
		"ListPath":  "/people",
		"CSRFToken": "tok",
		"Toasts":    []screen.Toast{{Level: screen.LevelSuccess, Message: "Saved"}},
	}
}

func TestEmbeddedTemplates_ListPage(t *testing.T) {
	r, err := NewTemplateRenderer(web.EmbeddedFS, false)
	if err != nil {
		t.Fatalf("NewTemplateRenderer() error: %v", err)
	}

	w := httptest.NewRecorder()
	if err := r.Instance("people/list.html", embeddedListData(false)).Render(w); err != nil {
		t.Fatalf("Render() error: %v", err)
	}

	body := w.Body.String()
	for _, want := range []string{
		`content="tok"`,
		"Add a person",
		`id="people-table"`,
		"Doe",
		"04/07/1990",
		`hx-delete="/people/7"`,
		`href="/people/7"`,
		`class="pagination"`,
		"toast-success",
		"Saved",
		`value="10" selected`,
		`href="/people?sort=lastName%3adesc"`,
		`hx-get="/people/table?sort=gender%3aasc%2clastName%3aasc"`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("list page missing %q", want)
		}
	}
}

func TestEmbeddedTemplates_TableLoading(t *testing.T) {
	r, err := NewTemplateRenderer(web.EmbeddedFS, false)
	if err != nil {
		t.Fatalf("NewTemplateRenderer() error: %v", err)
	}

	w := httptest.NewRecorder()
	if err := r.Instance("people/table.html", embeddedListData(true)).Render(w); err != nil {
		t.Fatalf("Render() error: %v", err)
	}

	body := w.Body.String()
	if !strings.Contains(body, `hx-get="/people/table"`) {
		t.Errorf("loading table should poll the table partial:\n%s", body)
	}
	if strings.Contains(body, "Doe") {
		t.Error("loading table should not render rows")
	}
}

func TestEmbeddedTemplates_FormPartial(t *testing.T) {
	r, err := NewTemplateRenderer(web.EmbeddedFS, false)
	if err != nil {
		t.Fatalf("NewTemplateRenderer() error: %v", err)
	}

	data := map[string]any{
		"Person":    domain.Person{LastName: "Doe", Gender: domain.GenderMale},
		"Errors":    screen.FieldErrors{"firstName": "This value should not be blank."},
		"IsEdit":    false,
		"Action":    "/people/new",
		"BirthDate": "1990-07-04",
		"ListPath":  "/people",
		"CSRFToken": "tok",
	}
	w := httptest.NewRecorder()
	if err := r.Instance("people/form_partial.html", data).Render(w); err != nil {
		t.Fatalf("Render() error: %v", err)
	}

	body := w.Body.String()
	for _, want := range []string{
		`hx-post="/people/new"`,
		`name="_csrf_token" value="tok"`,
		`value="Doe"`,
		`value="1" selected`,
		`value="1990-07-04"`,
		"This value should not be blank.",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("form partial missing %q", want)
		}
	}
}
