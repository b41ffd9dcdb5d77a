package domain

import "time"

// ActivityType names the kind of event carried by an Activity.
type ActivityType string

const (
	ActivityMessage               ActivityType = "message"
	ActivityConversationUpdate    ActivityType = "conversationUpdate"
	ActivityContactRelationUpdate ActivityType = "contactRelationUpdate"
	ActivityDeleteUserData        ActivityType = "deleteUserData"
	ActivityEndOfConversation     ActivityType = "endOfConversation"
	ActivityEvent                 ActivityType = "event"
	ActivityInvoke                ActivityType = "invoke"
	ActivityMessageReaction       ActivityType = "messageReaction"
	ActivityPing                  ActivityType = "ping"
	ActivityTyping                ActivityType = "typing"
)

// ChannelAccount identifies a user or bot on a channel.
type ChannelAccount struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// ConversationAccount identifies a conversation on a channel.
type ConversationAccount struct {
	ID      string `json:"id"`
	Name    string `json:"name,omitempty"`
	IsGroup bool   `json:"isGroup,omitempty"`
}

// Activity is one inbound or outbound conversational event.
type Activity struct {
	Type         ActivityType        `json:"type"`
	ID           string              `json:"id,omitempty"`
	Timestamp    time.Time           `json:"timestamp,omitempty"`
	ChannelID    string              `json:"channelId,omitempty"`
	ServiceURL   string              `json:"serviceUrl,omitempty"`
	From         ChannelAccount      `json:"from"`
	Recipient    ChannelAccount      `json:"recipient"`
	Conversation ConversationAccount `json:"conversation"`
	Text         string              `json:"text,omitempty"`
	Locale       string              `json:"locale,omitempty"`
	MembersAdded []ChannelAccount    `json:"membersAdded,omitempty"`
	ReplyToID    string              `json:"replyToId,omitempty"`
}

// Reply builds an outbound message activity addressed back to the sender of a.
func (a Activity) Reply(id, text string) Activity {
	return Activity{
		Type:         ActivityMessage,
		ID:           id,
		Timestamp:    time.Now().UTC(),
		ChannelID:    a.ChannelID,
		ServiceURL:   a.ServiceURL,
		From:         a.Recipient,
		Recipient:    a.From,
		Conversation: a.Conversation,
		Text:         text,
		Locale:       a.Locale,
		ReplyToID:    a.ID,
	}
}
