package domain

import (
	"encoding/json"
	"time"
)

// Counter names kept in ConversationState.Counters.
const (
	CounterPropertyFeedback = "propertyFeedback"
	CounterNoneIntent       = "noneIntent"
)

// PendingPrompt records the prompt an instance is suspended on.
type PendingPrompt struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Attempts int    `json:"attempts,omitempty"`
}

// DialogInstance is the activation record of one running dialog.
// Step is the index of the next step to run.
type DialogInstance struct {
	ID        string          `json:"id"`
	Step      int             `json:"step"`
	State     json.RawMessage `json:"state,omitempty"`
	Prompt    *PendingPrompt  `json:"prompt,omitempty"`
	StartedAt time.Time       `json:"startedAt"`
}

// ConversationState is the per-conversation record persisted between turns.
type ConversationState struct {
	ConversationID string           `json:"conversationId"`
	ActiveFlow     bool             `json:"activeFlow"`
	DialogStack    []DialogInstance `json:"dialogStack,omitempty"`
	Counters       map[string]int   `json:"counters,omitempty"`
	LastActivity   time.Time        `json:"lastActivity,omitempty"`

	// Version is owned by the store and used for optimistic writes.
	Version int64 `json:"-"`
}

// NewConversationState returns the state of a conversation seen for the first time.
func NewConversationState(conversationID string) *ConversationState {
	return &ConversationState{ConversationID: conversationID}
}

// Counter returns a named counter; a missing counter is zero.
func (s *ConversationState) Counter(name string) int {
	if s.Counters == nil {
		return 0
	}
	return s.Counters[name]
}

// Increment bumps a named counter and returns its new value.
func (s *ConversationState) Increment(name string) int {
	if s.Counters == nil {
		s.Counters = make(map[string]int)
	}
	s.Counters[name]++
	return s.Counters[name]
}

// HasActiveDialog reports whether a flow is running or a dialog is suspended.
func (s *ConversationState) HasActiveDialog() bool {
	return s.ActiveFlow || len(s.DialogStack) > 0
}

// UserInfo is the onboarding result.
type UserInfo struct {
	UserName   string `json:"userName"`
	UnitNumber string `json:"unitNumber"`
}

// MaintenanceRequest is a confirmed maintenance report.
type MaintenanceRequest struct {
	Appliance  string    `json:"appliance"`
	Issue      string    `json:"issue"`
	UnitNumber string    `json:"unitNumber,omitempty"`
	ReportedAt time.Time `json:"reportedAt"`
}

// UserState is the per-user record persisted across conversations.
type UserState struct {
	UserID              string               `json:"userId"`
	UserInfo            *UserInfo            `json:"userInfo,omitempty"`
	MaintenanceRequests []MaintenanceRequest `json:"maintenanceRequests,omitempty"`

	Version int64 `json:"-"`
}

// NewUserState returns the state of a user seen for the first time.
func NewUserState(userID string) *UserState {
	return &UserState{UserID: userID}
}

// Onboarded reports whether the user has completed onboarding.
func (s *UserState) Onboarded() bool {
	return s.UserInfo != nil && s.UserInfo.UserName != ""
}
