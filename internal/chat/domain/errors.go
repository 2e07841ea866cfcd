package domain

import "errors"

var (
	// ErrInvalidParticipants self conversation or malformed identity
	ErrInvalidParticipants = errors.New("invalid participants")

	// ErrEmptyMessage message text is blank after trim
	ErrEmptyMessage = errors.New("empty message")

	// ErrTransactionContention read-state transaction retries exhausted
	ErrTransactionContention = errors.New("read state transaction contention")

	// ErrConversationNotFound conversation record does not exist yet
	ErrConversationNotFound = errors.New("conversation not found")
)
