package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"homematch/models"
	"homematch/store"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// steppingClock starts at the current time and advances one millisecond per
// reading, so every write gets a distinct timestamp.
type steppingClock struct {
	mu  sync.Mutex
	now time.Time
}

func newSteppingClock() *steppingClock {
	return &steppingClock{now: time.Now().UTC().Truncate(time.Millisecond)}
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

type fakeAdvisor struct {
	proposal   *models.Proposal
	score      models.CompatibilityScore
	compromise *models.Proposal
	err        error

	gotText     string
	gotExisting *models.Criteria
}

func (f *fakeAdvisor) ExtractPreferences(_ context.Context, text string, existing *models.Criteria) (*models.Proposal, error) {
	f.gotText, f.gotExisting = text, existing
	if f.err != nil {
		return nil, f.err
	}
	p := *f.proposal
	return &p, nil
}

func (f *fakeAdvisor) ScoreCompatibility(context.Context, models.PreferenceSet, models.PreferenceSet) (models.CompatibilityScore, error) {
	if f.err != nil {
		return models.CompatibilityScore{}, f.err
	}
	return f.score, nil
}

func (f *fakeAdvisor) SuggestCompromise(context.Context, models.PreferenceSet, models.PreferenceSet) (*models.Proposal, error) {
	if f.err != nil {
		return nil, f.err
	}
	p := *f.compromise
	return &p, nil
}

type fakeSearch struct {
	candidates []models.Candidate
	err        error
	calls      int
	criteria   models.Criteria
}

func (f *fakeSearch) Search(_ context.Context, criteria models.Criteria) ([]models.Candidate, error) {
	f.calls++
	f.criteria = criteria
	return f.candidates, f.err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.Event
}

func (p *recordingPublisher) Publish(e models.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

var errUpstreamDown = errors.New("upstream unavailable")

type testEnv struct {
	table     *store.BadgerTable
	clock     *steppingClock
	workflow  *Workflow
	advisor   *fakeAdvisor
	search    *fakeSearch
	publisher *recordingPublisher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	table, err := store.OpenBadger(store.BadgerConfig{InMemory: true}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = table.Close() })

	clock := newSteppingClock()
	logger := zap.NewNop()
	env := &testEnv{
		table:     table,
		clock:     clock,
		advisor:   &fakeAdvisor{},
		search:    &fakeSearch{},
		publisher: &recordingPublisher{},
	}
	ledger := NewLedgerService(table, logger, clock.Now, 0)
	ledger.Publisher = env.publisher
	env.workflow = &Workflow{
		Rooms:         NewRoomService(table, logger, clock.Now),
		Preferences:   NewPreferenceService(table, logger, clock.Now),
		Listings:      NewListingService(table, logger, clock.Now),
		Ledger:        ledger,
		Compatibility: NewCompatibilityService(table, logger, clock.Now),
		Advisor:       env.advisor,
		Searcher:      env.search,
		Logger:        logger,
	}
	return env
}

// newRoom creates a room owned by "anna" and joined by "ben".
func (e *testEnv) newRoom(t *testing.T) *models.Room {
	t.Helper()
	ctx := context.Background()
	room, err := e.workflow.CreateRoom(ctx, NewRoom{Name: "Our flat", CreatedBy: "anna", SearchType: models.OfferTypeRent})
	require.NoError(t, err)
	_, err = e.workflow.JoinRoom(ctx, room.RoomID, "ben")
	require.NoError(t, err)
	return room
}

func (e *testEnv) eventTypes(t *testing.T, roomID string) []string {
	t.Helper()
	events, err := e.workflow.Ledger.List(context.Background(), roomID, false, 0)
	require.NoError(t, err)
	types := make([]string, 0, len(events))
	for _, ev := range events {
		types = append(types, ev.Type)
	}
	return types
}
