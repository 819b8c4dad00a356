package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"biblioteca/internal/auth"
	"biblioteca/internal/database/books"
	"biblioteca/internal/entities"
	"biblioteca/internal/favorites"
)

// BooksStore defines the book operations the public controllers need.
type BooksStore interface {
	favorites.Store
	List(ctx context.Context) ([]entities.Book, error)
	Get(ctx context.Context, id string) (*entities.Book, error)
	ListFavoritesForUser(ctx context.Context, userID string) ([]entities.Book, error)
}

// BooksController serves the public catalog: browsing and favoriting.
type BooksController struct {
	store BooksStore
}

func NewBooksController(store BooksStore) *BooksController {
	return &BooksController{store: store}
}

// List returns all curated books.
// GET /api/books
func (bc *BooksController) List(c *gin.Context) {
	list, err := bc.store.List(c.Request.Context())
	if err != nil {
		respondInternalError(c, err, "list books")
		return
	}
	c.JSON(http.StatusOK, gin.H{"books": list})
}

// Get returns a single book with the viewer's favorite state.
// GET /api/books/:id
func (bc *BooksController) Get(c *gin.Context) {
	book, err := bc.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, books.ErrBookNotFound) {
			respondNotFound(c, "book")
			return
		}
		respondInternalError(c, err, "get book")
		return
	}

	var uid string
	if user := auth.GetCurrentUser(c); user != nil {
		uid = user.UID
	}
	toggle := favorites.NewToggle(bc.store, book, uid)

	c.JSON(http.StatusOK, gin.H{"book": book, "favorite": toggle.State()})
}

// ToggleFavorite flips the viewer's favorite state on a book and returns
// the authoritative state.
// POST /api/books/:id/favorite
func (bc *BooksController) ToggleFavorite(c *gin.Context) {
	book, err := bc.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, books.ErrBookNotFound) {
			respondNotFound(c, "book")
			return
		}
		respondInternalError(c, err, "get book")
		return
	}

	var uid string
	if user := auth.GetCurrentUser(c); user != nil {
		uid = user.UID
	}

	toggle := favorites.NewToggle(bc.store, book, uid)
	state, err := toggle.Toggle(c.Request.Context())
	if err != nil {
		if errors.Is(err, favorites.ErrNotSignedIn) {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: err.Error()})
			return
		}
		if errors.Is(err, books.ErrBookNotFound) {
			respondNotFound(c, "book")
			return
		}
		respondInternalError(c, err, "toggle favorite")
		return
	}

	c.JSON(http.StatusOK, gin.H{"favorite": state})
}

// ListFavorites returns the signed-in user's favorite books.
// GET /api/favorites
func (bc *BooksController) ListFavorites(c *gin.Context) {
	user := auth.GetCurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
		return
	}

	list, err := bc.store.ListFavoritesForUser(c.Request.Context(), user.UID)
	if err != nil {
		respondInternalError(c, err, "list favorites")
		return
	}
	c.JSON(http.StatusOK, gin.H{"books": list})
}
