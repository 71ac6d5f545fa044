package realtime

import "encoding/json"

// Client request types.
const (
	TypeCreateRoom = "create_room"
	TypeJoinRoom   = "join_room"
	TypeStartMatch = "start_match"
	TypeSubmitCode = "submit_code"
	TypeLeaveRoom  = "leave_room"
)

// Envelope is the wire format in both directions: a type tag plus an opaque
// payload interpreted per type.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type outEnvelope struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// Ack is the single terminal reply every request gets, success or failure.
// Room-wide effects additionally arrive as broadcast events.
type Ack struct {
	Request string      `json:"request"`
	OK      bool        `json:"ok"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type createRoomRequest struct {
	RoomID           string `json:"room_id,omitempty"`
	TimeLimitSeconds int    `json:"time_limit_seconds,omitempty"`
	Difficulty       string `json:"difficulty,omitempty"`
	Team             bool   `json:"team,omitempty"`
}

type joinRoomRequest struct {
	RoomID string `json:"room_id"`
}

type startMatchRequest struct {
	ProblemID string `json:"problem_id,omitempty"`
}

type submitCodeRequest struct {
	ProblemID string `json:"problem_id,omitempty"` // team battles only
	Code      string `json:"code"`
	Language  string `json:"language"`
	Stdin     string `json:"stdin,omitempty"` // fallback input for tests without one
}
