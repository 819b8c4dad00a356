// Package favorites tracks the favorite state of one book for one viewer.
//
// The toggle never counts on its own: every mutation goes through the
// repository, and local state is replaced by the authoritative membership
// and count the repository returns. A failed call leaves the previous
// state untouched.
package favorites

import (
	"context"
	"errors"
	"sync"

	"biblioteca/internal/database/books"
	"biblioteca/internal/entities"
)

// ErrNotSignedIn is returned when toggling without a signed-in viewer.
var ErrNotSignedIn = errors.New("must be signed in to favorite books")

// Store is the subset of the books repository the toggle needs.
type Store interface {
	AddFavorite(ctx context.Context, bookID, userID string) (*books.Favorite, error)
	RemoveFavorite(ctx context.Context, bookID, userID string) (*books.Favorite, error)
}

// State is the rendered favorite state of a book card.
type State struct {
	IsFavorite     bool `json:"isFavorite"`
	FavoritesCount int  `json:"favoritesCount"`
}

// Toggle is the per-book, per-viewer favorite control.
type Toggle struct {
	store  Store
	bookID string
	userID string // empty when no viewer is signed in

	mu    sync.Mutex
	state State
}

// NewToggle initializes the control from the book's stored favorite set
// and counter. userID may be empty for anonymous viewers.
func NewToggle(store Store, book *entities.Book, userID string) *Toggle {
	return &Toggle{
		store:  store,
		bookID: book.ID,
		userID: userID,
		state: State{
			IsFavorite:     userID != "" && book.FavoritedBy.Contains(userID),
			FavoritesCount: book.FavoritesCount,
		},
	}
}

// State returns the current favorite state.
func (t *Toggle) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Toggle flips the favorite state through the repository and returns the
// resulting state. Anonymous viewers get ErrNotSignedIn and no call is made.
func (t *Toggle) Toggle(ctx context.Context) (State, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.userID == "" {
		return t.state, ErrNotSignedIn
	}

	var (
		result *books.Favorite
		err    error
	)
	if t.state.IsFavorite {
		result, err = t.store.RemoveFavorite(ctx, t.bookID, t.userID)
	} else {
		result, err = t.store.AddFavorite(ctx, t.bookID, t.userID)
	}
	if err != nil {
		return t.state, err
	}

	t.state = State{IsFavorite: result.Favorited, FavoritesCount: result.Count}
	return t.state, nil
}
