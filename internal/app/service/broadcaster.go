package service

// Broadcaster fans room-scoped events out to every connection joined to a
// room. Implemented by the realtime hub; declared here to avoid an import
// cycle between the service and gateway layers.
type Broadcaster interface {
	BroadcastToRoom(roomID string, event string, payload interface{})
}

// Events broadcast to room members.
const (
	EventRoomUpdate         = "room_update"
	EventMatchStarted       = "match_started"
	EventSubmissionProgress = "submission_progress"
	EventMatchFinished      = "match_finished"
	EventError              = "error"
)
