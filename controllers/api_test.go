package controllers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"homematch/controllers"
	"homematch/models"
	"homematch/routes"
	"homematch/services"
	"homematch/store"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type tickClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *tickClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

func newRouter(t *testing.T) *mux.Router {
	t.Helper()
	table, err := store.OpenBadger(store.BadgerConfig{InMemory: true}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = table.Close() })

	clock := &tickClock{now: time.Now().UTC()}
	logger := zap.NewNop()
	workflow := &services.Workflow{
		Rooms:         services.NewRoomService(table, logger, clock.Now),
		Preferences:   services.NewPreferenceService(table, logger, clock.Now),
		Listings:      services.NewListingService(table, logger, clock.Now),
		Ledger:        services.NewLedgerService(table, logger, clock.Now, 0),
		Compatibility: services.NewCompatibilityService(table, logger, clock.Now),
		Logger:        logger,
	}

	r := mux.NewRouter()
	routes.RegisterRoutes(r, prometheus.NewRegistry())
	routes.RegisterRoomRoutes(r, workflow, logger)
	routes.RegisterPreferenceRoutes(r, workflow, logger)
	routes.RegisterListingRoutes(r, workflow, nil, logger)
	routes.RegisterActivityRoutes(r, workflow, logger)
	return r
}

func do(t *testing.T, r http.Handler, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(controllers.UserHeader, user)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// createRoom creates a room owned by anna and joined by ben.
func createRoom(t *testing.T, r http.Handler) string {
	t.Helper()
	rec := do(t, r, "POST", "/api/rooms", "anna", map[string]any{"name": "Zurich flat", "searchType": "rent"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	room := decode[models.Room](t, rec)

	rec = do(t, r, "POST", "/api/rooms/"+room.RoomID+"/members", "", map[string]any{"userId": "ben"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return room.RoomID
}

func TestHealth(t *testing.T) {
	r := newRouter(t)
	rec := do(t, r, "GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestRoomMembership(t *testing.T) {
	r := newRouter(t)
	roomID := createRoom(t, r)

	rec := do(t, r, "POST", "/api/rooms/"+roomID+"/members", "", map[string]any{"userId": "carla"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, r, "GET", "/api/rooms/"+roomID+"/members", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	members := decode[struct {
		Members []models.Member `json:"members"`
	}](t, rec)
	require.Len(t, members.Members, 2)
	assert.Equal(t, "anna", members.Members[0].UserID)

	rec = do(t, r, "GET", "/api/users/ben/rooms", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), roomID)

	rec = do(t, r, "GET", "/api/rooms/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error"`)
}

func TestRequestValidation(t *testing.T) {
	r := newRouter(t)
	roomID := createRoom(t, r)

	tests := []struct {
		name   string
		method string
		path   string
		user   string
		body   any
	}{
		{"missing offer type", "PUT", "/api/rooms/" + roomID + "/preferences/anna", "", map[string]any{"criteria": map[string]any{}}},
		{"weight out of range", "PUT", "/api/rooms/" + roomID + "/preferences/anna", "", map[string]any{
			"criteria": map[string]any{"offerType": "rent"},
			"weights":  map[string]any{"priceTo": 9},
		}},
		{"unknown mode", "POST", "/api/rooms/" + roomID + "/combined", "", map[string]any{"mode": "loose"}},
		{"unknown field", "POST", "/api/rooms/" + roomID + "/combined", "", map[string]any{"mode": "all", "extra": 1}},
		{"missing actor", "POST", "/api/rooms/" + roomID + "/messages", "", map[string]any{"text": "hi"}},
		{"bad order", "GET", "/api/rooms/" + roomID + "/events?order=up", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, r, tt.method, tt.path, tt.user, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestPreferencesAndSearchFallback(t *testing.T) {
	r := newRouter(t)
	roomID := createRoom(t, r)

	rec := do(t, r, "GET", "/api/rooms/"+roomID+"/preferences/anna", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	for user, priceTo := range map[string]float64{"anna": 2500, "ben": 3000} {
		rec = do(t, r, "PUT", "/api/rooms/"+roomID+"/preferences/"+user, "", map[string]any{
			"criteria": map[string]any{"offerType": "rent", "location": "Zurich", "priceTo": priceTo},
			"weights":  map[string]any{"priceTo": 4},
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec = do(t, r, "GET", "/api/rooms/"+roomID+"/preferences", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	all := decode[struct {
		Preferences map[string]models.PreferenceVersion `json:"preferences"`
	}](t, rec)
	assert.Len(t, all.Preferences, 2)

	rec = do(t, r, "POST", "/api/rooms/"+roomID+"/search", "anna", map[string]any{"mode": "strict"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode[models.SearchResult](t, rec)
	assert.True(t, result.Fallback)
	assert.NotEmpty(t, result.Candidates)
	require.NotNil(t, result.Combined.Criteria.PriceTo)
	assert.Equal(t, 2500.0, *result.Combined.Criteria.PriceTo)
}

func TestListingLifecycle(t *testing.T) {
	r := newRouter(t)
	roomID := createRoom(t, r)
	base := "/api/rooms/" + roomID + "/listings"

	pin := map[string]any{"source": "homegate", "externalId": "4001234567", "title": "3.5 rooms near the lake"}
	rec := do(t, r, "POST", base, "anna", pin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	listing := decode[models.Listing](t, rec)
	assert.Equal(t, models.StatusUnseen, listing.Status)

	rec = do(t, r, "POST", base, "ben", pin)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, r, "GET", base+"/lookup?source=homegate&externalId=4001234567", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, listing.ListingID, decode[models.Listing](t, rec).ListingID)

	rec = do(t, r, "POST", base+"/"+listing.ListingID+"/seen", "ben", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, models.StatusSeen, decode[models.Listing](t, rec).Status)

	rec = do(t, r, "PATCH", base+"/"+listing.ListingID+"/status", "anna", map[string]any{"status": "visit_planned", "visitAt": "next tuesday"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, "PATCH", base+"/"+listing.ListingID+"/status", "anna", map[string]any{"status": "visit_planned", "visitAt": "2030-05-04T10:00:00+02:00"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[models.Listing](t, rec)
	require.NotNil(t, updated.VisitAt)
	assert.Equal(t, time.Date(2030, 5, 4, 8, 0, 0, 0, time.UTC), updated.VisitAt.UTC())

	rec = do(t, r, "GET", base+"?status=visit_planned", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), listing.ListingID)

	rec = do(t, r, "POST", base+"/"+listing.ListingID+"/photo-upload-url", "anna", map[string]any{"fileName": "a.jpg", "contentType": "image/jpeg"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec = do(t, r, "GET", "/api/rooms/"+roomID+"/events?order=desc&limit=1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	events := decode[struct {
		Events []models.Event `json:"events"`
	}](t, rec)
	require.Len(t, events.Events, 1)
	assert.Equal(t, models.EventVisitScheduled, events.Events[0].Type)
}

func TestCompatibilityWithoutAdvisorIsDegraded(t *testing.T) {
	r := newRouter(t)
	roomID := createRoom(t, r)

	rec := do(t, r, "POST", "/api/rooms/"+roomID+"/compatibility", "anna", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	snapshot := decode[models.CompatibilitySnapshot](t, rec)
	assert.True(t, snapshot.Degraded)
	assert.Equal(t, models.NeutralCompatibilityScore, snapshot.Score)

	rec = do(t, r, "GET", "/api/rooms/"+roomID+"/compatibility", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), snapshot.SnapshotID)

	rec = do(t, r, "POST", "/api/rooms/"+roomID+"/compromise", "anna", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostMessage(t *testing.T) {
	r := newRouter(t)
	roomID := createRoom(t, r)

	rec := do(t, r, "POST", "/api/rooms/"+roomID+"/messages", "ben", map[string]any{"text": "viewing at 6?"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, models.EventChatMessage, decode[models.Event](t, rec).Type)

	rec = do(t, r, "POST", "/api/rooms/"+roomID+"/messages", "mallory", map[string]any{"text": "hello"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
