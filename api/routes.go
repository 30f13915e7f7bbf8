package api

import (
	"github.com/fadbs/anidb-cache/api/health"
	"github.com/fadbs/anidb-cache/api/lookup"
	"github.com/fadbs/anidb-cache/api/types"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes wires every handler package into the engine
func RegisterRoutes(engine *gin.Engine, deps *types.Dependencies) {
	health.RegisterRoutes(engine, deps)

	v1 := engine.Group("/api/v1")
	lookup.RegisterRoutes(v1, deps)
}
