package peopleui

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/peopleadmin/internal/domain"
	"github.com/simp-lee/peopleadmin/internal/hydra"
	"github.com/simp-lee/peopleadmin/internal/session"
)

// --- in-memory API fake with error injection ---

type fakeAPI struct {
	mu     sync.Mutex
	people map[uint]domain.Person
	nextID uint

	findAllErr error
	postErr    error
	putErr     error
	deleteErr  error

	orders []domain.SortSpec
	posts  []domain.Person
	puts   []domain.Person
}

func newFakeAPI(n int) *fakeAPI {
	f := &fakeAPI{people: make(map[uint]domain.Person), nextID: 1}
	for i := 0; i < n; i++ {
		id := f.nextID
		f.people[id] = domain.Person{ID: id, LastName: "Last" + strconv.Itoa(int(id)), FirstName: "First", Gender: domain.GenderFemale}
		f.nextID++
	}
	return f
}

func (f *fakeAPI) FindAll(_ context.Context, page, perPage int, order domain.SortSpec) (*hydra.Collection[domain.Person], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = append(f.orders, order)
	if f.findAllErr != nil {
		return nil, f.findAllErr
	}
	ids := make([]int, 0, len(f.people))
	for id := range f.people {
		ids = append(ids, int(id))
	}
	sort.Ints(ids)
	members := []domain.Person{}
	for i := (page - 1) * perPage; i >= 0 && i < len(ids) && i < page*perPage; i++ {
		members = append(members, f.people[uint(ids[i])])
	}
	return &hydra.Collection[domain.Person]{Member: members, TotalItems: int64(len(ids))}, nil
}

func (f *fakeAPI) FindOne(_ context.Context, id string) (*domain.Person, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, _ := strconv.Atoi(id)
	p, ok := f.people[uint(n)]
	if !ok {
		return nil, &hydra.Error{StatusCode: http.StatusNotFound, Description: "Not Found"}
	}
	return &p, nil
}

func (f *fakeAPI) Post(_ context.Context, body domain.Person) (*domain.Person, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts = append(f.posts, body)
	if f.postErr != nil {
		return nil, f.postErr
	}
	body.ID = f.nextID
	f.nextID++
	f.people[body.ID] = body
	return &body, nil
}

func (f *fakeAPI) Put(_ context.Context, id string, body domain.Person) (*domain.Person, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts = append(f.puts, body)
	if f.putErr != nil {
		return nil, f.putErr
	}
	n, _ := strconv.Atoi(id)
	body.ID = uint(n)
	f.people[body.ID] = body
	return &body, nil
}

func (f *fakeAPI) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	n, _ := strconv.Atoi(id)
	if _, ok := f.people[uint(n)]; !ok {
		return &hydra.Error{StatusCode: http.StatusNotFound}
	}
	delete(f.people, uint(n))
	return nil
}

func (f *fakeAPI) lastOrder() domain.SortSpec {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.orders) == 0 {
		return nil
	}
	return f.orders[len(f.orders)-1]
}

var errBoom = errors.New("boom")

// --- router and browser helpers ---

// stubTemplates print just enough of the template data to assert on.
const stubTemplates = `{{define "people/list.html"}}list total={{.View.TotalCount}} page={{.View.CurrentPage}} size={{.View.PageSize}}{{range .View.Items}} [{{.ID}}]{{end}}{{range .Toasts}} toast:{{.Message}}{{end}}{{end}}` +
	`{{define "people/table.html"}}table{{if .Loading}} loading{{end}} total={{.View.TotalCount}} page={{.View.CurrentPage}} size={{.View.PageSize}}{{range .View.Items}} [{{.ID}}]{{end}}{{if .View.ShowPagination}} paginated{{end}}{{end}}` +
	`{{define "people/form.html"}}form edit={{.IsEdit}} action={{.Action}} last={{.Person.LastName}} birth={{.BirthDate}}{{range $k, $v := .Errors}} err:{{$k}}={{$v}}{{end}}{{range .Toasts}} toast:{{.Message}}{{end}}{{end}}` +
	`{{define "people/form_partial.html"}}partial edit={{.IsEdit}}{{range $k, $v := .Errors}} err:{{$k}}={{$v}}{{end}}{{end}}` +
	`{{define "errors/500.html"}}500{{end}}`

func setupRouter(api *fakeAPI) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.SetHTMLTemplate(template.Must(template.New("").Parse(stubTemplates)))

	store := session.NewStore(session.Options{})
	pages := r.Group("/")
	pages.Use(store.Middleware())

	h := NewPageHandler(api, Options{
		ListPath:        "/people",
		PageSizes:       []int{10, 30, 50},
		DefaultPageSize: 10,
		DefaultSort:     domain.ParseSortSpec("lastName:asc"),
	})
	NewModule(h).RegisterRoutes(r.Group("/api"), pages)
	return r
}

// browser replays the session cookie across requests.
type browser struct {
	t      *testing.T
	r      *gin.Engine
	cookie *http.Cookie
}

func newBrowser(t *testing.T, api *fakeAPI) *browser {
	return &browser{t: t, r: setupRouter(api)}
}

func (b *browser) do(method, path string, form url.Values, htmx bool) *httptest.ResponseRecorder {
	b.t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	if b.cookie != nil {
		req.AddCookie(b.cookie)
	}
	w := httptest.NewRecorder()
	b.r.ServeHTTP(w, req)
	for _, c := range w.Result().Cookies() {
		if c.Name == "people_sid" {
			b.cookie = c
		}
	}
	return w
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	return b.do(http.MethodGet, path, nil, false)
}

func (b *browser) hx(method, path string, form url.Values) *httptest.ResponseRecorder {
	return b.do(method, path, form, true)
}

func assertContains(t *testing.T, body, want string) {
	t.Helper()
	if !strings.Contains(body, want) {
		t.Errorf("body %q does not contain %q", body, want)
	}
}

func assertNotContains(t *testing.T, body, unwanted string) {
	t.Helper()
	if strings.Contains(body, unwanted) {
		t.Errorf("body %q unexpectedly contains %q", body, unwanted)
	}
}
