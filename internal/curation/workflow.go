// Package curation drives the admin search/add/delete workflow as an
// explicit state machine.
//
// Search-as-you-type is debounced: every keystroke restarts a timer, and
// only the timer issues a catalog call, so at most one search request is
// in flight at a time. A generation counter ties timer fires and response
// arrivals to the keystroke that scheduled them; superseded generations
// are discarded without touching state.
//
// Timer-issued searches run on the workflow's own context, not on the
// context of the request that recorded the keystroke: the timer fires long
// after that request has finished and its context has been canceled.
package curation

import (
	"context"
	"strings"
	"sync"
	"time"

	"biblioteca/internal/catalog"
	"biblioteca/internal/database/books"
	"biblioteca/internal/entities"
)

// State is the workflow phase visible to the rendering layer.
type State string

const (
	StateIdle      State = "idle"
	StateSearching State = "searching"
	StateResults   State = "results"
	StateMutating  State = "mutating"
)

// DefaultSearchDebounce is the delay between the last keystroke and the
// catalog call.
const DefaultSearchDebounce = 500 * time.Millisecond

// User-facing error messages. Errors are sticky until the next successful
// action.
const (
	MsgLoadFailed   = "could not load the books. Try again later."
	MsgSearchFailed = "could not search the catalog. Try again."
	MsgAddFailed    = "could not add the book. Try again."
	MsgDeleteFailed = "could not delete the book. Try again."
)

// BookStore is the subset of the books repository the workflow needs.
type BookStore interface {
	List(ctx context.Context) ([]entities.Book, error)
	Add(ctx context.Context, draft books.Draft) (string, error)
	Delete(ctx context.Context, id string) error
}

// Searcher queries the external catalog.
type Searcher interface {
	Search(ctx context.Context, term string) ([]catalog.SearchResult, error)
}

// Snapshot is a consistent view of the workflow for rendering.
type Snapshot struct {
	State         State                  `json:"state"`
	SearchTerm    string                 `json:"searchTerm"`
	SearchResults []catalog.SearchResult `json:"searchResults"`
	Books         []entities.Book        `json:"books"`
	Error         string                 `json:"error,omitempty"`
}

// Workflow is the admin curation state machine. All methods are safe for
// concurrent use; concurrent mutations are not serialized and the last
// completed write wins, matching the reference behavior.
type Workflow struct {
	store    BookStore
	searcher Searcher
	debounce time.Duration
	ctx      context.Context // outlives any single request; canceled by Close
	cancel   context.CancelFunc

	mu        sync.Mutex
	state     State
	term      string
	results   []catalog.SearchResult
	books     []entities.Book
	errMsg    string
	timer     *time.Timer
	searchGen int
	closed    bool
}

// NewWorkflow creates a workflow. A zero debounce falls back to
// DefaultSearchDebounce.
func NewWorkflow(store BookStore, searcher Searcher, debounce time.Duration) *Workflow {
	if debounce <= 0 {
		debounce = DefaultSearchDebounce
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Workflow{
		store:    store,
		searcher: searcher,
		debounce: debounce,
		ctx:      ctx,
		cancel:   cancel,
		state:    StateIdle,
	}
}

// Close stops the debounce timer and prevents any further state updates,
// including from responses that arrive after teardown.
func (w *Workflow) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	w.stopTimerLocked()
	w.cancel()
}

// Snapshot returns the current view of the workflow.
func (w *Workflow) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Snapshot{
		State:         w.state,
		SearchTerm:    w.term,
		SearchResults: append([]catalog.SearchResult{}, w.results...),
		Books:         append([]entities.Book{}, w.books...),
		Error:         w.errMsg,
	}
}

// Load refreshes the curated list from the repository. On failure the
// previous list stays visible and a sticky error message is set.
func (w *Workflow) Load(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.state = StateMutating
	w.mu.Unlock()

	list, err := w.store.List(ctx)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return err
	}
	if err != nil {
		w.errMsg = MsgLoadFailed
		w.settleLocked()
		return err
	}
	w.books = list
	w.errMsg = ""
	w.settleLocked()
	return nil
}

// SetSearchTerm records a keystroke. Terms shorter than two trimmed
// characters clear any shown results without calling the catalog; longer
// terms (re)start the debounce timer. The search the timer eventually
// issues runs on the workflow context, so it survives the keystroke's
// request ending first.
func (w *Workflow) SetSearchTerm(term string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}

	w.term = term
	w.stopTimerLocked()
	w.searchGen++

	trimmed := strings.TrimSpace(term)
	if len([]rune(trimmed)) < catalog.MinSearchTermLength {
		w.results = nil
		w.settleLocked()
		return
	}

	gen := w.searchGen
	w.timer = time.AfterFunc(w.debounce, func() {
		w.runSearch(gen, trimmed)
	})
}

func (w *Workflow) runSearch(gen int, term string) {
	w.mu.Lock()
	if w.closed || gen != w.searchGen {
		w.mu.Unlock()
		return
	}
	w.state = StateSearching
	w.mu.Unlock()

	results, err := w.searcher.Search(w.ctx, term)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || gen != w.searchGen {
		// A newer keystroke superseded this search while it was in flight.
		return
	}
	if err != nil {
		w.errMsg = MsgSearchFailed
		w.results = nil
		w.settleLocked()
		return
	}
	w.results = results
	w.errMsg = ""
	w.settleLocked()
}

// AddResult persists a search result as a curated book. Success clears the
// search state and reloads the list; failure keeps the search state so the
// admin can retry.
func (w *Workflow) AddResult(ctx context.Context, result catalog.SearchResult) (string, error) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return "", nil
	}
	w.state = StateMutating
	w.mu.Unlock()

	id, err := w.store.Add(ctx, books.DraftFromSearchResult(result))

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return id, err
	}
	if err != nil {
		w.errMsg = MsgAddFailed
		w.settleLocked()
		w.mu.Unlock()
		return "", err
	}

	// Search state is cleared on success regardless of how the reload goes.
	w.term = ""
	w.results = nil
	w.searchGen++
	w.stopTimerLocked()
	w.errMsg = ""
	w.mu.Unlock()

	if loadErr := w.Load(ctx); loadErr != nil {
		return id, loadErr
	}
	return id, nil
}

// DeleteBook removes a curated book after explicit confirmation. Declining
// leaves both the workflow and the repository untouched.
func (w *Workflow) DeleteBook(ctx context.Context, id string, confirmed bool) error {
	if !confirmed {
		return nil
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.state = StateMutating
	w.mu.Unlock()

	err := w.store.Delete(ctx, id)

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return err
	}
	if err != nil {
		w.errMsg = MsgDeleteFailed
		w.settleLocked()
		w.mu.Unlock()
		return err
	}
	w.errMsg = ""
	w.mu.Unlock()

	return w.Load(ctx)
}

// settleLocked leaves the busy states once an action finished.
func (w *Workflow) settleLocked() {
	if len(w.results) > 0 {
		w.state = StateResults
		return
	}
	w.state = StateIdle
}

func (w *Workflow) stopTimerLocked() {
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}
