// internal/engagement/types.go
package engagement

// Actions accepted on an engagement event
const (
	ActionLike     = "like"
	ActionUnlike   = "unlike"
	ActionView     = "view"
	ActionFavorite = "favorite"
)

// DefaultAction is applied when the caller omits action
const DefaultAction = ActionLike

// EventRequest is the body of POST /like and of the downstream event call
type EventRequest struct {
	VideoID  string         `json:"videoId" validate:"required,uuid_any"`
	Action   string         `json:"action" validate:"oneof=like unlike view favorite"`
	Metadata *EventMetadata `json:"metadata,omitempty"`
}

// EventMetadata describes where the event originated
type EventMetadata struct {
	Source string `json:"source,omitempty" validate:"omitempty,oneof=mobile web tv"`
}

// EventResponse carries the updated counters. At least one counter must be
// present and neither may be negative.
type EventResponse struct {
	Likes *int `json:"likes,omitempty" validate:"required_without=Views,omitempty,min=0"`
	Views *int `json:"views,omitempty" validate:"required_without=Likes,omitempty,min=0"`
}
