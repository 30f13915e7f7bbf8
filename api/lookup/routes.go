package lookup

import (
	"github.com/fadbs/anidb-cache/api/types"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers series lookup routes
func RegisterRoutes(group *gin.RouterGroup, deps *types.Dependencies) {
	group.GET("/lookup", Get(deps))
}
