package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"biblioteca/internal/catalog"
	"biblioteca/internal/curation"
	"biblioteca/internal/database/books"
)

// AdminController drives the curation workflow over HTTP. Each handler is
// one event of the state machine; the snapshot endpoint is what an admin
// UI polls to render.
type AdminController struct {
	workflow *curation.Workflow
}

func NewAdminController(workflow *curation.Workflow) *AdminController {
	return &AdminController{workflow: workflow}
}

// Snapshot returns the current curation view.
// GET /api/admin/curation
func (ac *AdminController) Snapshot(c *gin.Context) {
	c.JSON(http.StatusOK, ac.workflow.Snapshot())
}

// Reload refreshes the curated list.
// POST /api/admin/curation/reload
func (ac *AdminController) Reload(c *gin.Context) {
	// The workflow converts failures into its sticky error state, so the
	// snapshot is the response either way.
	_ = ac.workflow.Load(c.Request.Context())
	c.JSON(http.StatusOK, ac.workflow.Snapshot())
}

type searchRequest struct {
	Term string `json:"term"`
}

// Search records a search keystroke. The catalog call itself is issued by
// the debounce timer, so the immediate response only acknowledges the
// term change.
// POST /api/admin/curation/search
func (ac *AdminController) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "term is required")
		return
	}

	// The debounced catalog call runs on the workflow's own context, which
	// keeps it alive after this request's context is canceled.
	ac.workflow.SetSearchTerm(req.Term)
	c.JSON(http.StatusAccepted, ac.workflow.Snapshot())
}

// AddBook persists a selected search result into the curated collection.
// POST /api/admin/curation/books
func (ac *AdminController) AddBook(c *gin.Context) {
	var result catalog.SearchResult
	if err := c.ShouldBindJSON(&result); err != nil {
		respondBadRequest(c, "invalid search result payload")
		return
	}
	if result.Title == "" {
		respondBadRequest(c, "title is required")
		return
	}

	id, err := ac.workflow.AddResult(c.Request.Context(), result)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"snapshot": ac.workflow.Snapshot()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id, "snapshot": ac.workflow.Snapshot()})
}

// DeleteBook removes a curated book. The confirm query parameter is the
// outcome of the client-side confirmation prompt; anything but "true"
// declines and leaves everything untouched.
// DELETE /api/admin/curation/books/:id?confirm=true
func (ac *AdminController) DeleteBook(c *gin.Context) {
	confirmed := c.Query("confirm") == "true"
	if !confirmed {
		c.JSON(http.StatusOK, gin.H{"message": "deletion declined"})
		return
	}

	err := ac.workflow.DeleteBook(c.Request.Context(), c.Param("id"), true)
	if err != nil {
		if errors.Is(err, books.ErrBookNotFound) {
			respondNotFound(c, "book")
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"snapshot": ac.workflow.Snapshot()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "book deleted", "snapshot": ac.workflow.Snapshot()})
}
