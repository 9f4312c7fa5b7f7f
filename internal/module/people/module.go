package people

import "github.com/gin-gonic/gin"

// Module serves the people resource under the API group.
type Module struct {
	handler *PersonHandler
}

// NewModule creates a new people API module.
// Panics if h is nil.
func NewModule(h *PersonHandler) *Module {
	if h == nil {
		panic("people.NewModule: handler must not be nil")
	}
	return &Module{handler: h}
}

// RegisterRoutes registers the people API routes. The module has no pages.
func (m *Module) RegisterRoutes(api *gin.RouterGroup, _ *gin.RouterGroup) {
	api.POST("/people", m.handler.Create)
	api.GET("/people", m.handler.List)
	api.GET("/people/:id", m.handler.Get)
	api.PUT("/people/:id", m.handler.Replace)
	api.DELETE("/people/:id", m.handler.Delete)
}
