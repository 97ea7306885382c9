package webhook

// SlotifyMeetingEvent is the payload of POST /webhooks/slotify/meeting:
// Slotify's callback for meeting lifecycle changes.
type SlotifyMeetingEvent struct {
	MeetingID string `json:"meeting_id" validate:"required,min=1,max=255"`
	EventType string `json:"event_type" validate:"required,oneof=completed cancelled rescheduled"`
	Reason    string `json:"reason,omitempty"`
}

// MeetingEventResponse acknowledges a processed lifecycle event.
type MeetingEventResponse struct {
	MeetingID string `json:"meeting_id"`
	Status    string `json:"status"`
}
