package timeline

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"go.mau.fi/util/dbutil"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/beeper/msgedit/pkg/matrixevents"
	"github.com/beeper/msgedit/pkg/timeline/upgrades"
)

var ErrEventNotFound = errors.New("event not found")

// Store caches room events in the local database so edits can be resolved
// without a round trip.
type Store struct {
	db *dbutil.Database
}

func NewStore(db *dbutil.Database) *Store {
	return &Store{db: db}
}

// Upgrade brings the event cache schema up to date.
func (s *Store) Upgrade(ctx context.Context) error {
	s.db.UpgradeTable = upgrades.Table
	if err := s.db.Upgrade(ctx); err != nil {
		return fmt.Errorf("upgrade event cache: %w", err)
	}
	return nil
}

const eventColumns = `event_json`

func (s *Store) Put(ctx context.Context, evt *event.Event) error {
	if evt == nil || evt.ID == "" || evt.RoomID == "" {
		return fmt.Errorf("event is missing an ID or room ID")
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", evt.ID, err)
	}
	relType, relatesTo := matrixevents.Relation(&evt.Content)
	_, err = s.db.Exec(ctx,
		`INSERT INTO msgedit_events
           (room_id, event_id, sender, event_type, relates_to, rel_type, origin_ts, event_json)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
         ON CONFLICT (room_id, event_id)
         DO UPDATE SET sender=excluded.sender, event_type=excluded.event_type, relates_to=excluded.relates_to,
                       rel_type=excluded.rel_type, origin_ts=excluded.origin_ts, event_json=excluded.event_json`,
		evt.RoomID, evt.ID, evt.Sender, evt.Type.Type, relatesTo, relType, evt.Timestamp, string(data),
	)
	return err
}

func (s *Store) Get(ctx context.Context, roomID id.RoomID, eventID id.EventID) (*event.Event, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM msgedit_events WHERE room_id=$1 AND event_id=$2`,
		roomID, eventID,
	)
	var data string
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return decodeEvent(data)
}

// Replacements returns the cached m.replace events targeting eventID, oldest
// first.
func (s *Store) Replacements(ctx context.Context, roomID id.RoomID, eventID id.EventID) ([]*event.Event, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+eventColumns+` FROM msgedit_events
         WHERE room_id=$1 AND relates_to=$2 AND rel_type=$3
         ORDER BY origin_ts, event_id`,
		roomID, eventID, matrixevents.RelReplace,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*event.Event
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		evt, err := decodeEvent(data)
		if err != nil {
			return nil, err
		}
		events = append(events, evt)
	}
	return events, rows.Err()
}

func decodeEvent(data string) (*event.Event, error) {
	var evt event.Event
	if err := json.Unmarshal([]byte(data), &evt); err != nil {
		return nil, fmt.Errorf("decode cached event: %w", err)
	}
	// Unknown event types stay unparsed; the raw map is still usable.
	_ = evt.Content.ParseRaw(evt.Type)
	return &evt, nil
}
