package websocket

import "github.com/google/uuid"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionState    Action = "state"
	ActionAnswer   Action = "answer"
	ActionNext     Action = "next"
	ActionPrevious Action = "previous"
	ActionFinish   Action = "finish"
	ActionPing     Action = "ping"
)

// RequestPayload carries one client intent. OptionIDs is only read for the
// answer action.
type RequestPayload struct {
	Action    Action      `json:"action"`
	OptionIDs []uuid.UUID `json:"option_ids,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventState Event = "state"
	EventError Event = "error"
	EventPong  Event = "pong"
)

// StateResponse pushes the full session snapshot. Sent as the reply to every
// successful intent and on every timer broadcast.
type StateResponse struct {
	Event Event       `json:"event"`
	State interface{} `json:"state"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
