package pkg

import (
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/simp-lee/peopleadmin/internal/domain"
)

const (
	defaultPage     = 1
	defaultPageSize = 30
	maxPageSize     = 100
)

// validColumn matches only alphanumeric characters and underscores.
var validColumn = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ParsePageRequest extracts page, itemsPerPage and order[field] parameters.
// Order entries keep their query-string order.
func ParsePageRequest(c *gin.Context) domain.PageRequest {
	page, _ := strconv.Atoi(c.DefaultQuery("page", strconv.Itoa(defaultPage)))
	if page < 1 {
		page = defaultPage
	}

	pageSize, _ := strconv.Atoi(c.DefaultQuery("itemsPerPage", strconv.Itoa(defaultPageSize)))
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	return domain.PageRequest{
		Page:     page,
		PageSize: pageSize,
		Order:    ParseOrder(c.Request.URL.RawQuery),
	}
}

// ParseOrder reads order[field]=asc|desc pairs from a raw query string.
// url.Values loses ordering, so the query is split by hand.
func ParseOrder(rawQuery string) domain.SortSpec {
	var spec domain.SortSpec
	for _, pair := range strings.Split(rawQuery, "&") {
		k, v, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(k)
		if err != nil {
			continue
		}
		field, ok := strings.CutPrefix(key, "order[")
		if !ok || !strings.HasSuffix(field, "]") {
			continue
		}
		field = strings.TrimSuffix(field, "]")
		val, err := url.QueryUnescape(v)
		if err != nil {
			continue
		}
		dir, ok := domain.ParseDirection(val)
		if !ok || field == "" || spec.Has(field) {
			continue
		}
		spec = append(spec, domain.SortField{Field: field, Direction: dir})
	}
	return spec
}

// Paginate returns a GORM scope that applies LIMIT and OFFSET based on the page request.
func Paginate(req domain.PageRequest) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(req.Offset()).Limit(req.PageSize)
	}
}

// Sort returns a GORM scope that applies ORDER BY for every field of the
// request's order that maps to a column. Unknown fields are ignored.
func Sort(req domain.PageRequest, columns map[string]string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		for _, f := range req.Order {
			col, ok := columns[f.Field]
			if !ok || !validColumn.MatchString(col) {
				continue
			}
			db = db.Order(clause.OrderByColumn{
				Column: clause.Column{Name: col},
				Desc:   f.Direction == domain.Desc,
			})
		}
		return db
	}
}

// NewPageResult creates a PageResult with computed TotalPages.
func NewPageResult[T any](items []T, total int64, req domain.PageRequest) *domain.PageResult[T] {
	totalPages := 0
	if req.PageSize > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(req.PageSize)))
	}

	if items == nil {
		items = []T{}
	}

	return &domain.PageResult[T]{
		Items:      items,
		Total:      total,
		Page:       req.Page,
		PageSize:   req.PageSize,
		TotalPages: totalPages,
	}
}
