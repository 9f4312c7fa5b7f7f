package peopleui

import "github.com/gin-gonic/gin"

// Module serves the people pages under the page group.
type Module struct {
	handler  *PageHandler
	listPath string
}

// NewModule creates a new people UI module.
// Panics if h is nil.
func NewModule(h *PageHandler) *Module {
	if h == nil {
		panic("peopleui.NewModule: handler must not be nil")
	}
	return &Module{handler: h, listPath: h.opts.ListPath}
}

// RegisterRoutes registers the people page routes. The module has no API.
func (m *Module) RegisterRoutes(_ *gin.RouterGroup, pages *gin.RouterGroup) {
	pages.GET(m.listPath, m.handler.ListPage)
	pages.GET(m.listPath+"/table", m.handler.TablePartial)
	pages.GET(m.listPath+"/:id", m.handler.FormPage)
	pages.POST(m.listPath+"/:id", m.handler.Save)
	pages.DELETE(m.listPath+"/:id", m.handler.Delete)
}
