package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"biblioteca/internal/auth"
	"biblioteca/internal/catalog"
	"biblioteca/internal/config"
	"biblioteca/internal/curation"
	"biblioteca/internal/database/books"
	"biblioteca/internal/entities"
)

type fakeCurationStore struct {
	mu          sync.Mutex
	books       []entities.Book
	addErr      error
	deleteErr   error
	deleteCalls int
}

func (s *fakeCurationStore) List(ctx context.Context) ([]entities.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entities.Book{}, s.books...), nil
}

func (s *fakeCurationStore) Add(ctx context.Context, draft books.Draft) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.addErr != nil {
		return "", s.addErr
	}
	s.books = append(s.books, entities.Book{ID: "new-id", Title: draft.Title})
	return "new-id", nil
}

func (s *fakeCurationStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteCalls++
	return s.deleteErr
}

type fakeCatalog struct {
	mu    sync.Mutex
	terms []string
}

func (s *fakeCatalog) Search(ctx context.Context, term string) ([]catalog.SearchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.terms = append(s.terms, term)
	return []catalog.SearchResult{{ID: "gb1", Title: "Clean Code"}}, nil
}

func newAdminTestRouter(t *testing.T, store *fakeCurationStore, searcher *fakeCatalog) (*gin.Engine, *curation.Workflow) {
	gin.SetMode(gin.TestMode)

	workflow := curation.NewWorkflow(store, searcher, 10*time.Millisecond)
	t.Cleanup(workflow.Close)

	admin := &auth.CurrentUser{UID: "admin-1", Username: "admin", Role: entities.UserRoleAdmin}
	router := gin.New()
	router.Use(asUser(admin))

	controller := NewAdminController(workflow)
	group := router.Group("/api/admin", auth.RequireAdmin())
	group.GET("/curation", controller.Snapshot)
	group.POST("/curation/reload", controller.Reload)
	group.POST("/curation/search", controller.Search)
	group.POST("/curation/books", controller.AddBook)
	group.DELETE("/curation/books/:id", controller.DeleteBook)

	return router, workflow
}

func TestAdminSnapshot(t *testing.T) {
	store := &fakeCurationStore{books: []entities.Book{{ID: "b1", Title: "Dom Casmurro"}}}
	router, workflow := newAdminTestRouter(t, store, &fakeCatalog{})
	require.NoError(t, workflow.Load(context.Background()))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/admin/curation", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var snap curation.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, curation.StateIdle, snap.State)
	assert.Len(t, snap.Books, 1)
}

func TestAdminRoutes_RequireAdminRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	workflow := curation.NewWorkflow(&fakeCurationStore{}, &fakeCatalog{}, 10*time.Millisecond)
	t.Cleanup(workflow.Close)
	controller := NewAdminController(workflow)

	regular := &auth.CurrentUser{UID: "u1", Role: entities.UserRoleUser}
	router := gin.New()
	router.Use(asUser(regular))
	router.GET("/api/admin/curation", auth.RequireAdmin(), controller.Snapshot)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/admin/curation", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdminSearch(t *testing.T) {
	searcher := &fakeCatalog{}
	router, workflow := newAdminTestRouter(t, &fakeCurationStore{}, searcher)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/admin/curation/search",
		strings.NewReader(`{"term": "clean code"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	// The search itself runs after the debounce; the request only records
	// the keystroke.
	require.Equal(t, http.StatusAccepted, w.Code)

	require.Eventually(t, func() bool {
		return workflow.Snapshot().State == curation.StateResults
	}, time.Second, time.Millisecond)

	searcher.mu.Lock()
	assert.Equal(t, []string{"clean code"}, searcher.terms)
	searcher.mu.Unlock()
}

// TestAdminSearch_RealServer drives the search endpoint through a listening
// server, whose request contexts are canceled as soon as each handler
// returns. The debounced catalog call must still go out and its results must
// become visible.
func TestAdminSearch_RealServer(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var upstreamCalls int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&upstreamCalls, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"totalItems":1,"items":[{"id":"gb1","volumeInfo":{"title":"Clean Code","authors":["Robert C. Martin"]}}]}`))
	}))
	defer upstream.Close()

	client := catalog.NewClient(config.Catalog{
		APIKey:   "test-key",
		BaseURL:  upstream.URL,
		Language: "pt",
	})
	workflow := curation.NewWorkflow(&fakeCurationStore{}, client, 10*time.Millisecond)
	t.Cleanup(workflow.Close)

	admin := &auth.CurrentUser{UID: "admin-1", Username: "admin", Role: entities.UserRoleAdmin}
	router := gin.New()
	router.Use(asUser(admin))
	controller := NewAdminController(workflow)
	router.POST("/api/admin/curation/search", auth.RequireAdmin(), controller.Search)

	server := httptest.NewServer(router)
	defer server.Close()

	resp, err := http.Post(server.URL+"/api/admin/curation/search", "application/json",
		strings.NewReader(`{"term": "clean code"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	require.Eventually(t, func() bool {
		snap := workflow.Snapshot()
		return snap.State == curation.StateResults && len(snap.SearchResults) == 1
	}, time.Second, 5*time.Millisecond)

	snap := workflow.Snapshot()
	assert.Equal(t, "Clean Code", snap.SearchResults[0].Title)
	assert.Empty(t, snap.Error)
	assert.Equal(t, int32(1), atomic.LoadInt32(&upstreamCalls))
}

func TestAdminAddBook(t *testing.T) {
	store := &fakeCurationStore{}
	router, _ := newAdminTestRouter(t, store, &fakeCatalog{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/admin/curation/books",
		strings.NewReader(`{"id": "gb1", "title": "Clean Code", "author": "Robert C. Martin"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var body struct {
		ID       string            `json:"id"`
		Snapshot curation.Snapshot `json:"snapshot"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "new-id", body.ID)
	assert.Len(t, body.Snapshot.Books, 1)
	assert.Empty(t, body.Snapshot.Error)
}

func TestAdminAddBook_MissingTitle(t *testing.T) {
	router, _ := newAdminTestRouter(t, &fakeCurationStore{}, &fakeCatalog{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/admin/curation/books",
		strings.NewReader(`{"id": "gb1"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminAddBook_StoreFailure(t *testing.T) {
	store := &fakeCurationStore{addErr: errors.New("disk full")}
	router, workflow := newAdminTestRouter(t, store, &fakeCatalog{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/admin/curation/books",
		strings.NewReader(`{"id": "gb1", "title": "Clean Code"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, curation.MsgAddFailed, workflow.Snapshot().Error)
}

func TestAdminDeleteBook_Confirmed(t *testing.T) {
	store := &fakeCurationStore{books: []entities.Book{{ID: "b1"}}}
	router, _ := newAdminTestRouter(t, store, &fakeCatalog{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/admin/curation/books/b1?confirm=true", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	store.mu.Lock()
	assert.Equal(t, 1, store.deleteCalls)
	store.mu.Unlock()
}

func TestAdminDeleteBook_Declined(t *testing.T) {
	store := &fakeCurationStore{books: []entities.Book{{ID: "b1"}}}
	router, _ := newAdminTestRouter(t, store, &fakeCatalog{})

	for _, query := range []string{"", "?confirm=false", "?confirm=1"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodDelete, "/api/admin/curation/books/b1"+query, nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	}

	store.mu.Lock()
	assert.Zero(t, store.deleteCalls)
	store.mu.Unlock()
}

func TestAdminDeleteBook_StoreFailure(t *testing.T) {
	store := &fakeCurationStore{deleteErr: errors.New("locked")}
	router, workflow := newAdminTestRouter(t, store, &fakeCatalog{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/admin/curation/books/b1?confirm=true", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, curation.MsgDeleteFailed, workflow.Snapshot().Error)
}

func TestAdminDeleteBook_NotFound(t *testing.T) {
	store := &fakeCurationStore{deleteErr: books.ErrBookNotFound}
	router, _ := newAdminTestRouter(t, store, &fakeCatalog{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/admin/curation/books/missing?confirm=true", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
