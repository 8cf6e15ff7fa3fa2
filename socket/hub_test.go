package socket

import (
	"context"
	"testing"

	"homematch/apperrors"
	"homematch/models"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeMembers map[string]bool

func (f fakeMembers) GetMember(_ context.Context, roomID, userID string) (*models.Member, error) {
	if f[roomID+"/"+userID] {
		return &models.Member{RoomID: roomID, UserID: userID}, nil
	}
	return nil, apperrors.NewNotFound("user %s is not a member of room %s", userID, roomID)
}

type fakeConn struct {
	rooms   []string
	emitted []string
}

func (c *fakeConn) ID() string       { return "conn-1" }
func (c *fakeConn) Join(room string) { c.rooms = append(c.rooms, room) }
func (c *fakeConn) Emit(event string, _ ...interface{}) {
	c.emitted = append(c.emitted, event)
}

func TestHandleJoin(t *testing.T) {
	hub := NewHub(fakeMembers{"r1/anna": true}, zap.NewNop(), nil)

	tests := []struct {
		name  string
		req   JoinRequest
		rooms []string
		emit  string
	}{
		{name: "member", req: JoinRequest{RoomID: "r1", UserID: "anna"}, rooms: []string{"r1"}, emit: "joined"},
		{name: "stranger", req: JoinRequest{RoomID: "r1", UserID: "mallory"}, emit: "joinError"},
		{name: "missing room", req: JoinRequest{UserID: "anna"}, emit: "joinError"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := &fakeConn{}
			hub.handleJoin(conn, tt.req)
			assert.Equal(t, tt.rooms, conn.rooms)
			assert.Equal(t, []string{tt.emit}, conn.emitted)
		})
	}
}

func TestPublishWithoutSubscribers(t *testing.T) {
	hub := NewHub(fakeMembers{}, zap.NewNop(), nil)
	assert.NotPanics(t, func() {
		hub.Publish(models.Event{RoomID: "r1", Type: models.EventChatMessage})
	})
}
