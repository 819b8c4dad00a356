package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health reports service liveness.
// GET /health
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
