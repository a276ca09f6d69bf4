package conversation

import "errors"

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrNotParticipant       = errors.New("you are not a participant of this conversation")
	ErrUserBlocked          = errors.New("cannot send message - user is blocked")
	ErrEmptyMessage         = errors.New("message body is empty")
)
