package screen

import (
	"context"
	"log/slog"
	"slices"
	"strconv"
	"sync"

	"github.com/simp-lee/peopleadmin/internal/domain"
)

// Toast messages emitted by the list screen.
const (
	MsgLoadFailed   = "Loading people failed"
	MsgDeleted      = "Person deleted"
	MsgDeleteFailed = "An error occurred while deleting the person"
)

const defaultListPageSize = 10

// ListOptions configures a ListScreen.
type ListOptions struct {
	// PageSize is the initial page size; defaults to 10.
	PageSize int
	// Sort is the initial sort spec.
	Sort   domain.SortSpec
	Logger *slog.Logger
}

// ListView is an immutable snapshot of a ListScreen for rendering.
type ListView struct {
	Status      Status
	Items       []domain.Person
	TotalCount  int64
	CurrentPage int
	PageSize    int
	TotalPages  int
	Sort        domain.SortSpec
	// ShowPagination is true when the collection does not fit in one page.
	ShowPagination bool
}

// ListScreen is the paginated, sortable people list of one user session.
//
// Every fetch takes a token from a monotonically increasing counter and only
// the response holding the latest token commits. ListScreen is safe for
// concurrent use; API calls run without holding the lock.
type ListScreen struct {
	api    PeopleAPI
	notify Notifier
	logger *slog.Logger

	mu       sync.Mutex
	status   Status
	items    []domain.Person
	total    int64
	page     int
	pageSize int
	sort     domain.SortSpec
	issued   uint64 // last token handed to a fetch
	applied  uint64 // token of the last committed fetch
}

// NewListScreen creates an idle list screen.
func NewListScreen(api PeopleAPI, notify Notifier, opts ListOptions) *ListScreen {
	if notify == nil {
		notify = NotifierFunc(func(Toast) {})
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	size := opts.PageSize
	if size < 1 {
		size = defaultListPageSize
	}
	return &ListScreen{
		api:      api,
		notify:   notify,
		logger:   logger,
		status:   StatusIdle,
		items:    []domain.Person{},
		page:     1,
		pageSize: size,
		sort:     slices.Clone(opts.Sort),
	}
}

// SetPage selects a 1-based page; values below 1 select page 1.
// It reports whether the page changed.
func (s *ListScreen) SetPage(page int) bool {
	if page < 1 {
		page = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.page == page {
		return false
	}
	s.page = page
	return true
}

// SetPageSize changes the page size and goes back to page 1.
// Sizes below 1 are ignored. It reports whether anything changed.
func (s *ListScreen) SetPageSize(size int) bool {
	if size < 1 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pageSize == size {
		return false
	}
	s.pageSize = size
	s.page = 1
	return true
}

// SetSort replaces the sort spec and goes back to page 1.
// It reports whether the spec changed.
func (s *ListScreen) SetSort(spec domain.SortSpec) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sort.Equal(spec) {
		return false
	}
	s.sort = slices.Clone(spec)
	s.page = 1
	return true
}

// Refresh fetches the current page. The previous items stay visible in the
// snapshot if the fetch fails. A response overtaken by a newer Refresh is
// dropped and ErrStale is returned.
func (s *ListScreen) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.issued++
	token := s.issued
	page, size, order := s.page, s.pageSize, slices.Clone(s.sort)
	s.status = StatusLoading
	s.mu.Unlock()

	col, err := s.api.FindAll(ctx, page, size, order)

	s.mu.Lock()
	if token != s.issued {
		latest := s.issued
		s.mu.Unlock()
		s.logger.DebugContext(ctx, "discarding stale people page",
			slog.Uint64("token", token),
			slog.Uint64("latest", latest),
		)
		return ErrStale
	}
	if err != nil {
		s.status = StatusError
		s.mu.Unlock()
		s.logger.WarnContext(ctx, "load people failed",
			slog.Int("page", page),
			slog.Int("page_size", size),
			slog.Any("error", err),
		)
		s.notify.Notify(Toast{Level: LevelError, Message: MsgLoadFailed})
		return err
	}
	items := col.Member
	if len(items) > size {
		items = items[:size]
	}
	s.items = slices.Clone(items)
	s.total = col.TotalItems
	s.status = StatusLoaded
	s.applied = token
	s.mu.Unlock()
	return nil
}

// Delete removes the person from the visible page before the API confirms
// it. If the API call fails the row is put back where it was, unless a newer
// fetch committed in the meantime.
func (s *ListScreen) Delete(ctx context.Context, id uint) error {
	s.mu.Lock()
	idx := slices.IndexFunc(s.items, func(p domain.Person) bool { return p.ID == id })
	var (
		removed    domain.Person
		prev, next uint
	)
	if idx >= 0 {
		removed = s.items[idx]
		if idx > 0 {
			prev = s.items[idx-1].ID
		}
		if idx+1 < len(s.items) {
			next = s.items[idx+1].ID
		}
		s.items = slices.Delete(slices.Clone(s.items), idx, idx+1)
		if s.total > 0 {
			s.total--
		}
	}
	generation := s.applied
	s.mu.Unlock()

	err := s.api.Delete(ctx, strconv.FormatUint(uint64(id), 10))
	if err == nil {
		s.notify.Notify(Toast{Level: LevelSuccess, Message: MsgDeleted})
		return nil
	}

	s.mu.Lock()
	if idx >= 0 && s.applied == generation {
		at := restoreIndex(s.items, idx, prev, next)
		s.items = slices.Insert(slices.Clone(s.items), at, removed)
		s.total++
	}
	s.mu.Unlock()

	s.logger.WarnContext(ctx, "delete person failed",
		slog.Uint64("id", uint64(id)),
		slog.Any("error", err),
	)
	s.notify.Notify(Toast{Level: LevelError, Message: MsgDeleteFailed})
	return err
}

// restoreIndex finds where a rolled-back row goes: before its old successor,
// else after its old predecessor, else at its old position.
func restoreIndex(items []domain.Person, idx int, prev, next uint) int {
	if next != 0 {
		if i := slices.IndexFunc(items, func(p domain.Person) bool { return p.ID == next }); i >= 0 {
			return i
		}
	}
	if prev != 0 {
		if i := slices.IndexFunc(items, func(p domain.Person) bool { return p.ID == prev }); i >= 0 {
			return i + 1
		}
	}
	return min(idx, len(items))
}

// View returns a snapshot for rendering.
func (s *ListScreen) View() ListView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ListView{
		Status:         s.status,
		Items:          slices.Clone(s.items),
		TotalCount:     s.total,
		CurrentPage:    s.page,
		PageSize:       s.pageSize,
		TotalPages:     domain.TotalPages(s.total, s.pageSize),
		Sort:           slices.Clone(s.sort),
		ShowPagination: int64(s.pageSize) < s.total,
	}
}
