package screen

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"sync"

	"github.com/simp-lee/peopleadmin/internal/domain"
	"github.com/simp-lee/peopleadmin/internal/hydra"
)

// --- in-memory API fake with error injection ---

type findAllCall struct {
	page, perPage int
	order         domain.SortSpec
}

type fakeAPI struct {
	mu     sync.Mutex
	people map[uint]domain.Person
	nextID uint

	findAllErr error
	findOneErr error
	postErr    error
	putErr     error
	deleteErr  error

	calls []findAllCall
	posts []domain.Person
	puts  []domain.Person
}

func newFakeAPI(n int) *fakeAPI {
	f := &fakeAPI{people: make(map[uint]domain.Person), nextID: 1}
	for i := 0; i < n; i++ {
		id := f.nextID
		f.people[id] = domain.Person{ID: id, LastName: "Last" + strconv.Itoa(int(id)), FirstName: "First", Gender: domain.GenderMale}
		f.nextID++
	}
	return f
}

func (f *fakeAPI) FindAll(_ context.Context, page, perPage int, order domain.SortSpec) (*hydra.Collection[domain.Person], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, findAllCall{page, perPage, order})
	if f.findAllErr != nil {
		return nil, f.findAllErr
	}
	ids := make([]int, 0, len(f.people))
	for id := range f.people {
		ids = append(ids, int(id))
	}
	sort.Ints(ids)
	start := (page - 1) * perPage
	members := []domain.Person{}
	for i := start; i < len(ids) && i < start+perPage; i++ {
		members = append(members, f.people[uint(ids[i])])
	}
	return &hydra.Collection[domain.Person]{Member: members, TotalItems: int64(len(ids))}, nil
}

func (f *fakeAPI) FindOne(_ context.Context, id string) (*domain.Person, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findOneErr != nil {
		return nil, f.findOneErr
	}
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

var errBoom = errors.New("boom")

func violationsErr(v ...domain.Violation) error {
	return &hydra.Error{StatusCode: http.StatusUnprocessableEntity, Violations: v}
}

// --- notifier/navigator recorder ---

// Recorder is a Notifier and Navigator that keeps what it was told.
type Recorder struct {
	mu     sync.Mutex
	toasts []Toast
	target string
}

// Notify appends t.
func (r *Recorder) Notify(t Toast) {
	r.mu.Lock()
	r.toasts = append(r.toasts, t)
	r.mu.Unlock()
}

// Replace records path as the navigation target.
func (r *Recorder) Replace(path string) {
	r.mu.Lock()
	r.target = path
	r.mu.Unlock()
}

// Toasts returns a copy of the recorded toasts.
func (r *Recorder) Toasts() []Toast {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Toast(nil), r.toasts...)
}

// Drain returns and forgets the recorded toasts.
func (r *Recorder) Drain() []Toast {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.toasts
	r.toasts = nil
	return out
}

// Target returns the last navigation target, or "".
func (r *Recorder) Target() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.target
}
