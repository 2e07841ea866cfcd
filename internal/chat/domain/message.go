package domain

// ChatMessage one immutable message inside a conversation
type ChatMessage struct {
	ID             string `bson:"id" json:"id"`
	ConversationID string `bson:"conversation_id" json:"conversation_id"`
	Seq            int64  `bson:"seq" json:"seq"` // per-conversation arrival order
	SenderID       string `bson:"sender_id" json:"sender_id"`
	Text           string `bson:"text" json:"text"`
	Timestamp      int64  `bson:"timestamp" json:"timestamp"` // unix ms, server-assigned
}

// Before report message order inside one conversation:
// timestamp first, seq breaks equal timestamps
func (m ChatMessage) Before(other ChatMessage) bool {
	if m.Timestamp != other.Timestamp {
		return m.Timestamp < other.Timestamp
	}
	return m.Seq < other.Seq
}
