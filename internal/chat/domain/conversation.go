package domain

import "strings"

// ConversationIDSeparator joins the two sorted participant ids.
// Identities come from the auth collaborator and never contain it.
const ConversationIDSeparator = "_"

// Conversation definition two-party conversation record
type Conversation struct {
	ID           string           `bson:"_id" json:"id"`
	Participants []string         `bson:"participants" json:"participants"`
	UpdatedAt    int64            `bson:"updated_at" json:"updated_at"` // unix ms, server-assigned
	ReadBy       []string         `bson:"read_by" json:"read_by"`
	LastRead     map[string]int64 `bson:"last_read,omitempty" json:"last_read,omitempty"` // per-participant watermark, unix ms
	Version      int64            `bson:"version" json:"-"`                               // optimistic lock for read-state commits
	LastSeq      int64            `bson:"last_seq" json:"-"`                              // arrival tie-break counter
}

// ConversationSummary one inbox row: partner, preview, unread
type ConversationSummary struct {
	ConversationID string `json:"conversation_id"`
	PartnerID      string `json:"partner_id"`
	PartnerName    string `json:"partner_name"`
	PartnerAvatar  string `json:"partner_avatar"`
	LastMessage    string `json:"last_message"`
	LastTimestamp  int64  `json:"last_timestamp"`
	UnreadCount    int    `json:"unread_count"`
}

// PartnerProfile user info fetched from the external profile service
type PartnerProfile struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
	Email  string `json:"email"`
}

// DeriveConversationID map two participant identities to the one
// canonical conversation id. Pure, deterministic and symmetric:
// the smaller identity always goes first.
func DeriveConversationID(userA, userB string) (string, error) {
	if userA == "" || userB == "" || userA == userB {
		return "", ErrInvalidParticipants
	}
	if userA > userB {
		userA, userB = userB, userA
	}
	return userA + ConversationIDSeparator + userB, nil
}

// ParticipantsOf recover the two participant identities from a derived id
func ParticipantsOf(conversationID string) ([]string, error) {
	parts := strings.Split(conversationID, ConversationIDSeparator)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" || parts[0] == parts[1] {
		return nil, ErrInvalidParticipants
	}
	return parts, nil
}
