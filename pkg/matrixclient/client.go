// Package matrixclient makes a mautrix client-server API client look like a
// matrixtransport.Transport.
package matrixclient

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/beeper/msgedit/pkg/matrixtransport"
)

const (
	relationsPageSize = 50
	// maxRelationPages bounds pagination for events with pathological edit histories.
	maxRelationPages   = 20
	summaryConcurrency = 8
)

// API is the subset of *mautrix.Client the adapter calls.
type API interface {
	SendMessageEvent(ctx context.Context, roomID id.RoomID, eventType event.Type, contentJSON any, extra ...mautrix.ReqSendEvent) (*mautrix.RespSendEvent, error)
	GetEvent(ctx context.Context, roomID id.RoomID, eventID id.EventID) (*event.Event, error)
	GetRelations(ctx context.Context, roomID id.RoomID, eventID id.EventID, req *mautrix.ReqGetRelations) (*mautrix.RespGetRelations, error)
	JoinedMembers(ctx context.Context, roomID id.RoomID) (*mautrix.RespJoinedMembers, error)
	JoinedRooms(ctx context.Context) (*mautrix.RespJoinedRooms, error)
	StateEvent(ctx context.Context, roomID id.RoomID, eventType event.Type, stateKey string, outContent any) error
}

var _ API = (*mautrix.Client)(nil)

type Adapter struct {
	Client API
}

var _ matrixtransport.Transport = (*Adapter)(nil)

func New(client API) *Adapter {
	return &Adapter{Client: client}
}

var errMissingClient = errors.New("missing matrix client")

func (a *Adapter) SendMessage(ctx context.Context, roomID id.RoomID, eventType event.Type, content *event.Content, txnID string) (id.EventID, error) {
	if a == nil || a.Client == nil {
		return "", errMissingClient
	}
	resp, err := a.Client.SendMessageEvent(ctx, roomID, eventType, content, mautrix.ReqSendEvent{TransactionID: txnID})
	if err != nil {
		return "", err
	}
	return resp.EventID, nil
}

func (a *Adapter) GetEvent(ctx context.Context, roomID id.RoomID, eventID id.EventID) (*event.Event, error) {
	if a == nil || a.Client == nil {
		return nil, errMissingClient
	}
	evt, err := a.Client.GetEvent(ctx, roomID, eventID)
	if err != nil {
		return nil, err
	}
	parseContent(ctx, evt)
	return evt, nil
}

func (a *Adapter) GetRelations(ctx context.Context, roomID id.RoomID, eventID id.EventID, relType event.RelationType) ([]*event.Event, error) {
	if a == nil || a.Client == nil {
		return nil, errMissingClient
	}
	req := &mautrix.ReqGetRelations{
		RelationType: relType,
		Dir:          mautrix.DirectionBackward,
		Limit:        relationsPageSize,
	}
	var out []*event.Event
	for range maxRelationPages {
		resp, err := a.Client.GetRelations(ctx, roomID, eventID, req)
		if err != nil {
			return nil, fmt.Errorf("get %s relations of %s: %w", relType, eventID, err)
		}
		for _, evt := range resp.Chunk {
			if evt.RoomID == "" {
				evt.RoomID = roomID
			}
			parseContent(ctx, evt)
			out = append(out, evt)
		}
		if resp.NextBatch == "" || len(resp.Chunk) == 0 {
			break
		}
		req.From = resp.NextBatch
	}
	return out, nil
}

func (a *Adapter) GetMembers(ctx context.Context, roomID id.RoomID) ([]matrixtransport.Member, error) {
	if a == nil || a.Client == nil {
		return nil, errMissingClient
	}
	resp, err := a.Client.JoinedMembers(ctx, roomID)
	if err != nil {
		return nil, err
	}
	members := make([]matrixtransport.Member, 0, len(resp.Joined))
	for userID, member := range resp.Joined {
		members = append(members, matrixtransport.Member{UserID: userID, DisplayName: member.DisplayName})
	}
	slices.SortFunc(members, func(a, b matrixtransport.Member) int {
		return strings.Compare(string(a.UserID), string(b.UserID))
	})
	return members, nil
}

// JoinedRooms lists joined rooms with their canonical alias and name. Rooms
// whose state can't be read are still listed by ID.
func (a *Adapter) JoinedRooms(ctx context.Context) ([]matrixtransport.RoomSummary, error) {
	if a == nil || a.Client == nil {
		return nil, errMissingClient
	}
	resp, err := a.Client.JoinedRooms(ctx)
	if err != nil {
		return nil, err
	}
	summaries := make([]matrixtransport.RoomSummary, len(resp.JoinedRooms))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(summaryConcurrency)
	for i, roomID := range resp.JoinedRooms {
		g.Go(func() error {
			summaries[i] = a.roomSummary(gctx, roomID)
			return nil
		})
	}
	_ = g.Wait()
	return summaries, nil
}

func (a *Adapter) roomSummary(ctx context.Context, roomID id.RoomID) matrixtransport.RoomSummary {
	log := zerolog.Ctx(ctx).With().Stringer("room_id", roomID).Logger()
	summary := matrixtransport.RoomSummary{ID: roomID}
	var alias event.CanonicalAliasEventContent
	if err := a.Client.StateEvent(ctx, roomID, event.StateCanonicalAlias, "", &alias); err == nil {
		summary.Alias = alias.Alias
	} else if !errors.Is(err, mautrix.MNotFound) {
		log.Debug().Err(err).Msg("Failed to get canonical alias")
	}
	var name event.RoomNameEventContent
	if err := a.Client.StateEvent(ctx, roomID, event.StateRoomName, "", &name); err == nil {
		summary.Name = name.Name
	} else if !errors.Is(err, mautrix.MNotFound) {
		log.Debug().Err(err).Msg("Failed to get room name")
	}
	return summary
}

func parseContent(ctx context.Context, evt *event.Event) {
	if evt == nil || evt.Content.Parsed != nil || evt.Content.VeryRaw == nil {
		return
	}
	if err := evt.Content.ParseRaw(evt.Type); err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).
			Stringer("event_id", evt.ID).
			Str("event_type", evt.Type.Type).
			Msg("Failed to parse event content")
	}
}
