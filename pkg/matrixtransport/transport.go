package matrixtransport

import (
	"context"

	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"
)

// Transport abstracts the Matrix IO the edit session needs.
//
// Implementations:
// - client adapter (pkg/matrixclient, mautrix client-server API)
// - in-memory fakes in tests
type Transport interface {
	SendMessage(ctx context.Context, roomID id.RoomID, eventType event.Type, content *event.Content, txnID string) (id.EventID, error)

	GetEvent(ctx context.Context, roomID id.RoomID, eventID id.EventID) (*event.Event, error)
	// GetRelations returns every event relating to eventID with the given
	// relation type, following pagination.
	GetRelations(ctx context.Context, roomID id.RoomID, eventID id.EventID, relType event.RelationType) ([]*event.Event, error)

	GetMembers(ctx context.Context, roomID id.RoomID) ([]Member, error)
	JoinedRooms(ctx context.Context) ([]RoomSummary, error)
}

type Member struct {
	UserID      id.UserID
	DisplayName string
}

// RoomSummary is what's needed to mention a room: its canonical alias when
// it has one and its name.
type RoomSummary struct {
	ID    id.RoomID
	Alias id.RoomAlias
	Name  string
}
