package app

import "github.com/gin-gonic/gin"

// Module registers its routes on the two route groups. api is mounted at
// /api without CSRF or sessions; pages carries both.
type Module interface {
	RegisterRoutes(api *gin.RouterGroup, pages *gin.RouterGroup)
}
