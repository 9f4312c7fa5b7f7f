package pkg

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/simp-lee/peopleadmin/internal/domain"
)

// LDContentType is the media type of every API response.
const LDContentType = "application/ld+json; charset=utf-8"

const hydraContext = "/api/contexts/"

// Collection is the hydra:Collection envelope for paginated lists.
type Collection struct {
	Context    string `json:"@context"`
	ID         string `json:"@id"`
	Type       string `json:"@type"`
	Member     any    `json:"hydra:member"`
	TotalItems int64  `json:"hydra:totalItems"`
	View       *View  `json:"hydra:view,omitempty"`
}

// View is the hydra:PartialCollectionView describing neighbouring pages.
type View struct {
	ID       string `json:"@id"`
	Type     string `json:"@type"`
	First    string `json:"hydra:first,omitempty"`
	Last     string `json:"hydra:last,omitempty"`
	Previous string `json:"hydra:previous,omitempty"`
	Next     string `json:"hydra:next,omitempty"`
}

// ErrorResponse is the JSON-LD body for failed requests. Validation
// failures are typed ConstraintViolationList and carry violations.
type ErrorResponse struct {
	Context     string             `json:"@context"`
	Type        string             `json:"@type"`
	Title       string             `json:"hydra:title"`
	Description string             `json:"hydra:description"`
	Detail      string             `json:"detail"`
	Status      int                `json:"status"`
	Violations  []domain.Violation `json:"violations,omitempty"`
}

// JSONLD writes v with the JSON-LD media type.
func JSONLD(c *gin.Context, status int, v any) {
	c.Header("Content-Type", LDContentType)
	c.JSON(status, v)
}

// List writes one page of a collection. shortName names the resource's
// JSON-LD context, e.g. "Person".
func List[T any](c *gin.Context, shortName string, items any, result *domain.PageResult[T], req domain.PageRequest) {
	path := c.Request.URL.Path
	JSONLD(c, http.StatusOK, Collection{
		Context:    hydraContext + shortName,
		ID:         path,
		Type:       "hydra:Collection",
		Member:     items,
		TotalItems: result.Total,
		View:       NewView(path, req, result.TotalPages),
	})
}

// NewView builds the hydra:view links for page req.Page of totalPages.
// It returns nil when the collection fits a single page.
func NewView(path string, req domain.PageRequest, totalPages int) *View {
	if totalPages <= 1 {
		return nil
	}
	link := func(page int) string { return pageURL(path, page, req) }
	v := &View{
		ID:    link(req.Page),
		Type:  "hydra:PartialCollectionView",
		First: link(1),
		Last:  link(totalPages),
	}
	if req.Page > 1 {
		v.Previous = link(req.Page - 1)
	}
	if req.Page < totalPages {
		v.Next = link(req.Page + 1)
	}
	return v
}

func pageURL(path string, page int, req domain.PageRequest) string {
	var b strings.Builder
	b.WriteString(path)
	b.WriteString("?itemsPerPage=")
	b.WriteString(strconv.Itoa(req.PageSize))
	for _, f := range req.Order {
		b.WriteString("&order%5B")
		b.WriteString(f.Field)
		b.WriteString("%5D=")
		b.WriteString(string(f.Direction))
	}
	b.WriteString("&page=")
	b.WriteString(strconv.Itoa(page))
	return b.String()
}

// Error sends a JSON-LD error response. If err is a *domain.AppError, its code is
// mapped to the appropriate HTTP status; otherwise 500 is returned.
func Error(c *gin.Context, err error) {
	status := domain.HTTPStatusCode(err)

	var appErr *domain.AppError
	msg := "internal error"
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}

	resp := ErrorResponse{
		Context:     hydraContext + "Error",
		Type:        "hydra:Error",
		Title:       "An error occurred",
		Description: msg,
		Detail:      msg,
		Status:      status,
	}
	if domain.IsValidation(err) {
		resp.Context = hydraContext + "ConstraintViolationList"
		resp.Type = "ConstraintViolationList"
		resp.Violations = domain.ViolationsOf(err)
	}
	JSONLD(c, status, resp)
}

// BindAndValidate binds the JSON request body to obj and validates it.
// On failure it sends a 422 violation list (or 400 for malformed bodies)
// and returns false.
//
//	if !pkg.BindAndValidate(c, &req) { return }
func BindAndValidate(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		if v := Violations(err, obj); v != nil {
			Error(c, domain.NewValidationError(v))
		} else {
			Error(c, domain.NewAppError(domain.CodeBadRequest, "invalid request body", err))
		}
		return false
	}
	return true
}

// Violations converts validator errors into violations named by the JSON
// tags of obj. It returns nil when err is not a validation error.
func Violations(err error, obj any) []domain.Violation {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return nil
	}

	jsonTags := buildJSONTagMap(obj)

	out := make([]domain.Violation, 0, len(ve))
	for _, fe := range ve {
		name := fe.Field()
		if tag, ok := jsonTags[fe.StructField()]; ok {
			name = tag
		} else {
			name = strings.ToLower(name[:1]) + name[1:]
		}
		out = append(out, domain.Violation{PropertyPath: name, Message: violationMessage(fe)})
	}
	return out
}

func violationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This value should not be blank."
	case "min":
		return fmt.Sprintf("This value is too short. It should have %s characters or more.", fe.Param())
	case "max":
		return fmt.Sprintf("This value is too long. It should have %s characters or less.", fe.Param())
	case "oneof":
		return "The value you selected is not a valid choice."
	default:
		return "This value is not valid."
	}
}

// buildJSONTagMap returns a map from struct field name to its JSON tag name.
// If obj is nil or not a struct (pointer), it returns an empty map.
func buildJSONTagMap(obj any) map[string]string {
	if obj == nil {
		return nil
	}
	t := reflect.TypeOf(obj)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	m := make(map[string]string, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("json")
		if name := parseJSONTagName(tag); name != "" {
			m[f.Name] = name
		}
	}
	return m
}

// parseJSONTagName extracts the field name from a JSON struct tag value.
func parseJSONTagName(tag string) string {
	if tag == "" || tag == "-" {
		return ""
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" || name == "-" {
		return ""
	}
	return name
}
