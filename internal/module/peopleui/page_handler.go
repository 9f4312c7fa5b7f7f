// Package peopleui serves the people pages. Handlers drive the screens in
// internal/screen and render their snapshots; data comes from a Hydra API.
package peopleui

import (
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/peopleadmin/internal/domain"
	"github.com/simp-lee/peopleadmin/internal/middleware"
	"github.com/simp-lee/peopleadmin/internal/screen"
	"github.com/simp-lee/peopleadmin/internal/session"
)

// SortableFields are the list columns the user can sort by.
var SortableFields = []string{
	screen.FieldLastName,
	screen.FieldFirstName,
	screen.FieldGender,
	screen.FieldBirthDate,
}

// Column is one list table header.
type Column struct {
	Field string
	Label string
}

var columns = []Column{
	{Field: screen.FieldLastName, Label: "Last name"},
	{Field: screen.FieldFirstName, Label: "First name"},
	{Field: screen.FieldGender, Label: "Gender"},
	{Field: screen.FieldBirthDate, Label: "Birth date"},
}

// Options configures a PageHandler.
type Options struct {
	ListPath        string
	PageSizes       []int
	DefaultPageSize int
	DefaultSort     domain.SortSpec
	Logger          *slog.Logger
}

// PageHandler renders the list and form pages.
type PageHandler struct {
	api  screen.PeopleAPI
	opts Options
}

// NewPageHandler creates a PageHandler talking to api.
func NewPageHandler(api screen.PeopleAPI, opts Options) *PageHandler {
	if opts.ListPath == "" {
		opts.ListPath = "/people"
	}
	if len(opts.PageSizes) == 0 {
		opts.PageSizes = []int{10, 30, 50}
	}
	if opts.DefaultPageSize == 0 {
		opts.DefaultPageSize = opts.PageSizes[0]
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	opts.DefaultSort = opts.DefaultSort.Filter(SortableFields)
	return &PageHandler{api: api, opts: opts}
}

// ListPage renders the people list.
// GET /people
func (h *PageHandler) ListPage(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	list := h.list(sess)
	h.applyQuery(c, list)
	_ = list.Refresh(c.Request.Context())

	data := h.listData(c, list.View())
	data["Toasts"] = sess.Drain()
	c.HTML(http.StatusOK, "people/list.html", data)
}

// TablePartial renders the table fragment swapped in by htmx after paging,
// sorting or a page size change.
// GET /people/table
func (h *PageHandler) TablePartial(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	list := h.list(sess)
	h.applyQuery(c, list)
	_ = list.Refresh(c.Request.Context())

	h.renderTable(c, sess, list)
}

// Delete removes one person and re-renders the table. The row disappears
// at once and comes back if the API refuses the delete.
// DELETE /people/:id
func (h *PageHandler) Delete(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	list := h.list(sess)

	id, err := parseID(c.Param("id"))
	if err != nil {
		sess.Notify(screen.Toast{Level: screen.LevelError, Message: screen.MsgNotFound})
		c.Header("HX-Reswap", "none")
		flushToasts(c, sess)
		c.Status(http.StatusOK)
		return
	}

	_ = list.Delete(c.Request.Context(), id)
	h.renderTable(c, sess, list)
}

// FormPage renders the create form for "new" and the edit form otherwise.
// Unknown ids send the user back to the list.
// GET /people/:id
func (h *PageHandler) FormPage(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	nav := &navigator{}
	form := h.form(c.Param("id"), sess, nav)

	_ = form.Mount(c.Request.Context())
	if nav.target != "" {
		redirect(c, nav.target)
		return
	}
	h.renderForm(c, sess, form, "people/form.html")
}

// Save creates a person (id "new") or replaces an existing one with the
// submitted fields.
// POST /people/new, POST /people/:id
func (h *PageHandler) Save(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	nav := &navigator{}
	form := h.form(c.Param("id"), sess, nav)

	for _, field := range screen.Fields {
		_ = form.SetField(field, c.PostForm(field))
	}

	_ = form.Submit(c.Request.Context())
	if nav.target != "" {
		redirect(c, nav.target)
		return
	}

	page := "people/form.html"
	if isHTMX(c) {
		page = "people/form_partial.html"
	}
	h.renderForm(c, sess, form, page)
}

func (h *PageHandler) session(c *gin.Context) (*session.Session, bool) {
	sess := session.FromContext(c)
	if sess == nil {
		h.opts.Logger.ErrorContext(c.Request.Context(), "people page served without session middleware",
			slog.String("path", c.Request.URL.Path),
		)
		c.HTML(http.StatusInternalServerError, "errors/500.html", gin.H{})
		return nil, false
	}
	return sess, true
}

func (h *PageHandler) list(sess *session.Session) *screen.ListScreen {
	return sess.List(func(n screen.Notifier) *screen.ListScreen {
		return screen.NewListScreen(h.api, n, screen.ListOptions{
			PageSize: h.opts.DefaultPageSize,
			Sort:     h.opts.DefaultSort,
			Logger:   h.opts.Logger,
		})
	})
}

func (h *PageHandler) form(id string, notify screen.Notifier, nav screen.Navigator) *screen.FormScreen {
	return screen.NewFormScreen(id, h.api, notify, nav, screen.FormOptions{
		ListPath: h.opts.ListPath,
		Logger:   h.opts.Logger,
	})
}

// applyQuery feeds list controls from the query string: itemsPerPage (one of
// the offered sizes), page, and sort (the full order, e.g.
// "lastName:desc,firstName:asc", so reloading a link keeps it). The page is
// applied after the size and sort because both reset it to 1.
func (h *PageHandler) applyQuery(c *gin.Context, list *screen.ListScreen) {
	if v := c.Query("itemsPerPage"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && slices.Contains(h.opts.PageSizes, n) {
			list.SetPageSize(n)
		}
	}
	if v := c.Query("sort"); v != "" {
		if spec := domain.ParseSortSpec(v).Filter(SortableFields); len(spec) > 0 {
			list.SetSort(spec)
		}
	}
	if v := c.Query("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			list.SetPage(n)
		}
	}
}

func (h *PageHandler) listData(c *gin.Context, view screen.ListView) gin.H {
	return gin.H{
		"View":      view,
		"Loading":   view.Status == screen.StatusLoading,
		"Columns":   columns,
		"PageSizes": h.opts.PageSizes,
		"ListPath":  h.opts.ListPath,
		"CSRFToken": middleware.GetCSRFToken(c),
	}
}

func (h *PageHandler) renderTable(c *gin.Context, sess *session.Session, list *screen.ListScreen) {
	data := h.listData(c, list.View())
	flushToasts(c, sess)
	c.HTML(http.StatusOK, "people/table.html", data)
}

func (h *PageHandler) renderForm(c *gin.Context, sess *session.Session, form *screen.FormScreen, page string) {
	data := gin.H{
		"Form":      form,
		"Person":    form.Person(),
		"Errors":    form.Errors(),
		"IsEdit":    form.Editing(),
		"Action":    h.opts.ListPath + "/" + form.ID(),
		"BirthDate": form.BirthDateValue(),
		"ListPath":  h.opts.ListPath,
		"CSRFToken": middleware.GetCSRFToken(c),
	}
	if isHTMX(c) {
		flushToasts(c, sess)
	} else {
		data["Toasts"] = sess.Drain()
	}
	c.HTML(http.StatusOK, page, data)
}

// parseID extracts a positive numeric id.
func parseID(s string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(s), 10, strconv.IntSize)
	if err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, strconv.ErrRange
	}
	return uint(id), nil
}
