package people

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/peopleadmin/internal/domain"
	"github.com/simp-lee/peopleadmin/internal/pkg"
)

// PersonHandler serves the people collection as a Hydra API.
type PersonHandler struct {
	svc      domain.PersonService
	basePath string
}

// NewPersonHandler creates a new PersonHandler. basePath is the collection
// IRI, e.g. "/api/people".
func NewPersonHandler(svc domain.PersonService, basePath string) *PersonHandler {
	return &PersonHandler{svc: svc, basePath: basePath}
}

// Create handles POST /people.
func (h *PersonHandler) Create(c *gin.Context) {
	in, ok := h.bind(c)
	if !ok {
		return
	}

	p, err := h.svc.CreatePerson(c.Request.Context(), in)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	c.Header("Location", h.basePath+"/"+uitoa(p.ID))
	pkg.JSONLD(c, http.StatusCreated, newResource(h.basePath, *p, true))
}

// Get handles GET /people/:id.
func (h *PersonHandler) Get(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		pkg.Error(c, domain.NewAppError(domain.CodeNotFound, "Not Found", err))
		return
	}

	p, err := h.svc.GetPerson(c.Request.Context(), id)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.JSONLD(c, http.StatusOK, newResource(h.basePath, *p, true))
}

// List handles GET /people.
func (h *PersonHandler) List(c *gin.Context) {
	req := pkg.ParsePageRequest(c)
	req.Order = req.Order.Filter(SortFields)

	result, err := h.svc.ListPeople(c.Request.Context(), req)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	members := make([]personResource, 0, len(result.Items))
	for _, p := range result.Items {
		members = append(members, newResource(h.basePath, p, false))
	}
	pkg.List(c, "Person", members, result, req)
}

// Replace handles PUT /people/:id.
func (h *PersonHandler) Replace(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		pkg.Error(c, domain.NewAppError(domain.CodeNotFound, "Not Found", err))
		return
	}

	in, ok := h.bind(c)
	if !ok {
		return
	}

	p, err := h.svc.ReplacePerson(c.Request.Context(), id, in)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.JSONLD(c, http.StatusOK, newResource(h.basePath, *p, true))
}

// Delete handles DELETE /people/:id.
func (h *PersonHandler) Delete(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		pkg.Error(c, domain.NewAppError(domain.CodeNotFound, "Not Found", err))
		return
	}

	if err := h.svc.DeletePerson(c.Request.Context(), id); err != nil {
		pkg.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// bind decodes and validates the request body. It writes the error
// response itself when it returns false.
func (h *PersonHandler) bind(c *gin.Context) (domain.Person, bool) {
	var req PersonRequest
	if !pkg.BindAndValidate(c, &req) {
		return domain.Person{}, false
	}
	p, err := req.toPerson()
	if err != nil {
		var appErr *domain.AppError
		if !errors.As(err, &appErr) {
			err = domain.NewAppError(domain.CodeBadRequest, "invalid request body", err)
		}
		pkg.Error(c, err)
		return domain.Person{}, false
	}
	return p, true
}

func parseID(c *gin.Context) (uint, error) {
	idStr := c.Param("id")
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id: %s", idStr)
	}
	if id > uint64(^uint(0)) {
		return 0, fmt.Errorf("invalid id: %s", idStr)
	}
	return uint(id), nil
}

func uitoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
