// Package http wires the gin router. Handlers are thin consumers of the
// curation workflow, the books repository and the auth capability.
package http

import (
	"github.com/gin-gonic/gin"

	"biblioteca/internal/auth"
	"biblioteca/internal/curation"
)

// RouterDeps carries the injected collaborators for route construction.
type RouterDeps struct {
	Store        BooksStore
	Workflow     *curation.Workflow
	AuthHandlers *auth.Handlers
	Sessions     *auth.SessionManager
}

// NewRouter builds the gin engine with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(deps.Sessions.SessionLoadSave())

	router.GET("/health", Health)

	booksController := NewBooksController(deps.Store)
	adminController := NewAdminController(deps.Workflow)

	api := router.Group("/api")
	{
		authRoutes := api.Group("/auth")
		{
			authRoutes.POST("/signup", deps.AuthHandlers.SignUp)
			authRoutes.POST("/login", deps.AuthHandlers.Login)
			authRoutes.POST("/logout", deps.AuthHandlers.Logout)
			authRoutes.GET("/me", deps.AuthHandlers.Me)
		}

		api.GET("/books", booksController.List)
		api.GET("/books/:id", booksController.Get)
		api.POST("/books/:id/favorite", booksController.ToggleFavorite)
		api.GET("/favorites", auth.RequireAuth(), booksController.ListFavorites)

		admin := api.Group("/admin", auth.RequireAdmin())
		{
			admin.GET("/curation", adminController.Snapshot)
			admin.POST("/curation/reload", adminController.Reload)
			admin.POST("/curation/search", adminController.Search)
			admin.POST("/curation/books", adminController.AddBook)
			admin.DELETE("/curation/books/:id", adminController.DeleteBook)
		}
	}

	return router
}
