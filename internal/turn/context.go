// Package turn carries the state of one inbound activity while it is handled.
package turn

import (
	"github.com/google/uuid"

	"homebot/internal/domain"
)

// Context is bound to one activity. Replies are kept in send order.
type Context struct {
	Activity     domain.Activity
	Conversation *domain.ConversationState
	User         *domain.UserState

	replies []domain.Activity
}

// New binds a turn to an activity and its loaded state.
func New(activity domain.Activity, conv *domain.ConversationState, user *domain.UserState) *Context {
	return &Context{
		Activity:     activity,
		Conversation: conv,
		User:         user,
	}
}

// Send queues a text reply.
func (c *Context) Send(text string) {
	c.replies = append(c.replies, c.Activity.Reply(newID(), text))
}

// Responded reports whether anything has been sent during this turn.
func (c *Context) Responded() bool {
	return len(c.replies) > 0
}

// Replies returns the queued replies in send order.
func (c *Context) Replies() []domain.Activity {
	out := make([]domain.Activity, len(c.replies))
	copy(out, c.replies)
	return out
}

// Texts returns the text of each queued reply in send order.
func (c *Context) Texts() []string {
	out := make([]string, 0, len(c.replies))
	for _, r := range c.replies {
		out = append(out, r.Text)
	}
	return out
}

var newID = func() string {
	return uuid.NewString()
}
