package domain

// PresenceRecord one per user, written only by the owning user's
// connection (plus the server-side disconnect hook)
type PresenceRecord struct {
	Online        bool   `json:"online"`
	LastSeen      int64  `json:"last_seen"` // unix ms, server-assigned
	CurrentChatID string `json:"current_chat_id,omitempty"`
}

// Viewing report whether the user is online and looking at conversationID.
// CurrentChatID is meaningless while offline, and an idle user
// (empty CurrentChatID) views nothing.
func (p PresenceRecord) Viewing(conversationID string) bool {
	return p.Online && conversationID != "" && p.CurrentChatID == conversationID
}
