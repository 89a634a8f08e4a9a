package types

import "time"

// EventType identifies a frame on the live feed.
type EventType string

const (
	EventControlChanged EventType = "zone_control_changed"
	EventBattleOpened   EventType = "battle_opened"
	EventBattleResolved EventType = "battle_resolved"
	EventConquest       EventType = "territory_conquered"
	EventMoveExecuted   EventType = "tactical_move"
)

// Event is a single frame broadcast to feed subscribers.
type Event struct {
	Type    EventType   `json:"type"`
	At      time.Time   `json:"at"`
	Payload interface{} `json:"payload"`
}
