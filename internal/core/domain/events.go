package domain

// EventType defines the type of real-time event.
type EventType string

const (
	EventInitComments EventType = "INIT_COMMENTS"
	EventNewComment   EventType = "NEW_COMMENT"
)

// Event is the frame sent over WebSocket.
type Event struct {
	Type     EventType `json:"type"`
	Data     any       `json:"data"`
	TicketID int64     `json:"-"` // Used for routing to the ticket's subscribers
}

// NewCommentEvent builds the event pushed to subscribers after a comment is stored.
func NewCommentEvent(comment *Comment) Event {
	return Event{
		Type:     EventNewComment,
		Data:     NewCommentSnapshot(comment),
		TicketID: comment.TicketID,
	}
}

// InitCommentsEvent builds the snapshot frame sent once when a stream opens.
func InitCommentsEvent(ticketID int64, comments []*Comment) Event {
	return Event{
		Type:     EventInitComments,
		Data:     NewCommentSnapshots(comments),
		TicketID: ticketID,
	}
}
