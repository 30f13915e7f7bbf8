package lookup

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/fadbs/anidb-cache/api/types"
	"github.com/fadbs/anidb-cache/internal/models"
	"github.com/fadbs/anidb-cache/internal/services/anidb"
	"github.com/fadbs/anidb-cache/internal/services/search"
	"github.com/gin-gonic/gin"
)

// Get resolves a series by name and/or aid and returns its projection.
// Error mapping: missing args 400, no match 404, active ban 503.
func Get(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Query("name")

		aniDBID := 0
		if raw := c.Query("aid"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "aid must be a positive integer"})
				return
			}
			aniDBID = parsed
		}

		series, err := deps.Resolver.LookupSeries(c.Request.Context(), name, aniDBID)
		if err != nil {
			switch {
			case errors.Is(err, search.ErrInvalidArgs):
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			case errors.Is(err, search.ErrNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			case anidb.IsBanned(err):
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			}
			return
		}

		projection := models.ProjectSeries(series)
		if deps.MinTagWeight > 0 {
			for id, tag := range projection.Tags {
				if tag.Weight < deps.MinTagWeight {
					delete(projection.Tags, id)
				}
			}
		}

		c.JSON(http.StatusOK, projection)
	}
}
