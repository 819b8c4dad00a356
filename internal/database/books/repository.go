// Package books provides database operations for the curated book
// collection, including the favorite set and counter.
//
// Favorite mutations run in a single transaction that recomputes the
// counter from the membership set, so the two cannot drift apart through
// this package. RecountFavorites exists to repair rows written before that
// guarantee held.
package books

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"biblioteca/internal/catalog"
	"biblioteca/internal/entities"
)

// ErrBookNotFound is returned when the referenced book does not exist.
var ErrBookNotFound = errors.New("book not found")

// Draft is the payload accepted by Add. ExternalID carries the source
// catalog identifier, if any; it is stored for reference and never reused
// as the persisted id.
type Draft struct {
	ExternalID    string
	Title         string
	Author        string
	Description   string
	ImageURL      string
	Publisher     string
	PublishedDate string
	PageCount     int
	Categories    []string
	Language      string
}

// DraftFromSearchResult converts a transient catalog item into an Add
// payload, moving the catalog id into ExternalID.
func DraftFromSearchResult(r catalog.SearchResult) Draft {
	return Draft{
		ExternalID:    r.ID,
		Title:         r.Title,
		Author:        r.Author,
		Description:   r.Description,
		ImageURL:      r.ImageURL,
		Publisher:     r.Publisher,
		PublishedDate: r.PublishedDate,
		PageCount:     r.PageCount,
		Categories:    r.Categories,
		Language:      r.Language,
	}
}

// Favorite is the authoritative favorite state of a book for one user
// after a mutation.
type Favorite struct {
	Favorited bool `json:"favorited"`
	Count     int  `json:"count"`
}

// Repository handles all book database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// List returns all persisted books in store order.
func (r *Repository) List(ctx context.Context) ([]entities.Book, error) {
	var books []entities.Book
	if err := r.db.WithContext(ctx).Find(&books).Error; err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return books, nil
}

// Get retrieves a book by its persisted id.
func (r *Repository) Get(ctx context.Context, id string) (*entities.Book, error) {
	var book entities.Book
	err := r.db.WithContext(ctx).First(&book, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("get book: %w", err)
	}
	return &book, nil
}

// Add persists a new book from a draft and returns the assigned id. The
// returned id is generated here and is never the draft's external id.
func (r *Repository) Add(ctx context.Context, draft Draft) (string, error) {
	book := entities.Book{
		ID:             uuid.NewString(),
		ExternalID:     draft.ExternalID,
		Title:          draft.Title,
		Author:         draft.Author,
		Description:    draft.Description,
		ImageURL:       draft.ImageURL,
		Publisher:      draft.Publisher,
		PublishedDate:  draft.PublishedDate,
		PageCount:      draft.PageCount,
		Categories:     entities.StringSet(draft.Categories),
		Language:       draft.Language,
		FavoritedBy:    entities.StringSet{},
		FavoritesCount: 0,
	}
	if book.Categories == nil {
		book.Categories = entities.StringSet{}
	}

	if err := r.db.WithContext(ctx).Create(&book).Error; err != nil {
		return "", fmt.Errorf("add book: %w", err)
	}
	return book.ID, nil
}

// Update merges the given fields into an existing book and stamps
// updated_at. Fails with ErrBookNotFound if the book does not exist.
func (r *Repository) Update(ctx context.Context, id string, fields map[string]any) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := existingBook(tx, id, nil); err != nil {
			return err
		}
		if err := tx.Model(&entities.Book{}).Where("id = ?", id).Updates(fields).Error; err != nil {
			return fmt.Errorf("update book: %w", err)
		}
		return nil
	})
}

// Delete removes a book. The existence check runs before the delete so a
// missing book fails with ErrBookNotFound rather than silently succeeding.
func (r *Repository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := existingBook(tx, id, nil); err != nil {
			return err
		}
		if err := tx.Delete(&entities.Book{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("delete book: %w", err)
		}
		return nil
	})
}

// AddFavorite adds userID to the book's favorite set and returns the
// authoritative state. The counter is recomputed from the set inside the
// same transaction, so repeated calls are idempotent.
func (r *Repository) AddFavorite(ctx context.Context, bookID, userID string) (*Favorite, error) {
	return r.mutateFavorite(ctx, bookID, func(set entities.StringSet) entities.StringSet {
		return set.Union(userID)
	}, func(set entities.StringSet) bool {
		return set.Contains(userID)
	})
}

// RemoveFavorite removes userID from the book's favorite set and returns
// the authoritative state.
func (r *Repository) RemoveFavorite(ctx context.Context, bookID, userID string) (*Favorite, error) {
	return r.mutateFavorite(ctx, bookID, func(set entities.StringSet) entities.StringSet {
		return set.Remove(userID)
	}, func(set entities.StringSet) bool {
		return set.Contains(userID)
	})
}

func (r *Repository) mutateFavorite(ctx context.Context, bookID string, apply func(entities.StringSet) entities.StringSet, member func(entities.StringSet) bool) (*Favorite, error) {
	var state Favorite
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var book entities.Book
		if err := existingBook(tx, bookID, &book); err != nil {
			return err
		}

		set := apply(book.FavoritedBy)
		err := tx.Model(&entities.Book{}).Where("id = ?", bookID).Updates(map[string]any{
			"favorited_by":    set,
			"favorites_count": len(set),
		}).Error
		if err != nil {
			return fmt.Errorf("update favorites: %w", err)
		}

		state = Favorite{Favorited: member(set), Count: len(set)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// IsFavorited reports whether userID is in the book's favorite set.
func (r *Repository) IsFavorited(ctx context.Context, bookID, userID string) (bool, error) {
	book, err := r.Get(ctx, bookID)
	if err != nil {
		return false, err
	}
	return book.FavoritedBy.Contains(userID), nil
}

// ListFavoritesForUser returns all books favorited by the given user.
// Membership lives in a JSON column, so this filters in memory after the
// list query.
func (r *Repository) ListFavoritesForUser(ctx context.Context, userID string) ([]entities.Book, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	favorites := []entities.Book{}
	for _, book := range all {
		if book.FavoritedBy.Contains(userID) {
			favorites = append(favorites, book)
		}
	}
	return favorites, nil
}

// RecountFavorites sets favorites_count to the favorite-set size for every
// book where the two disagree, returning the number of repaired rows.
func (r *Repository) RecountFavorites(ctx context.Context) (int64, error) {
	var repaired int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var all []entities.Book
		if err := tx.Find(&all).Error; err != nil {
			return fmt.Errorf("list books: %w", err)
		}
		for _, book := range all {
			if book.FavoritesCount == len(book.FavoritedBy) {
				continue
			}
			err := tx.Model(&entities.Book{}).Where("id = ?", book.ID).
				Update("favorites_count", len(book.FavoritedBy)).Error
			if err != nil {
				return fmt.Errorf("recount favorites for %s: %w", book.ID, err)
			}
			repaired++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return repaired, nil
}

// existingBook loads a book into dst (when non-nil) and maps a missing row
// to ErrBookNotFound.
func existingBook(tx *gorm.DB, id string, dst *entities.Book) error {
	var book entities.Book
	if dst == nil {
		dst = &book
	}
	err := tx.First(dst, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBookNotFound
		}
		return fmt.Errorf("load book: %w", err)
	}
	return nil
}
