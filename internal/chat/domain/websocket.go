package domain

// Action websocket request action
type Action string

const (
	// EnterChat websocket action enter_chat
	EnterChat Action = "enter_chat"
	// LeaveChat websocket action leave_chat
	LeaveChat Action = "leave_chat"

	// SendMessage websocket action send_message
	SendMessage Action = "send_message"
	// MarkRead websocket action mark_read
	MarkRead Action = "mark_read"
	// GetHistory websocket action get_history
	GetHistory Action = "get_history"

	// GetInbox websocket action get_inbox
	GetInbox Action = "get_inbox"
	// WatchInbox websocket action watch_inbox
	WatchInbox Action = "watch_inbox"

	// WatchPresence websocket action watch_presence
	WatchPresence Action = "watch_presence"
	// UnwatchPresence websocket action unwatch_presence
	UnwatchPresence Action = "unwatch_presence"

	// NotifyMessage websocket push action notify_message
	NotifyMessage Action = "notify_message"
	// NotifyPresence websocket push action notify_presence
	NotifyPresence Action = "notify_presence"
	// NotifyInbox websocket push action notify_inbox
	NotifyInbox Action = "notify_inbox"
)

// WSRequest websocket Request
type WSRequest struct {
	Action    string `json:"action"`
	PartnerID string `json:"partner_id"`
	Content   string `json:"content"`
}

// WSResponse websocket Response
type WSResponse struct {
	Action  string                 `json:"action"`
	Success bool                   `json:"success"`
	Payload map[string]interface{} `json:"payload,omitempty"`
	Error   string                 `json:"error,omitempty"`
}
