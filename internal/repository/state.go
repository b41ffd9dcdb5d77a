package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"

	"homebot/internal/domain"
)

// StateStore loads and saves conversation and user state as JSON documents.
type StateStore struct {
	kv KV
}

func NewStateStore(kv KV) (*StateStore, error) {
	if kv == nil {
		return nil, errors.New("repository: kv must not be nil")
	}
	return &StateStore{kv: kv}, nil
}

// LoadConversation returns the stored state, or a fresh one when none exists.
// Fields absent from the stored document load as zero values.
func (s *StateStore) LoadConversation(ctx context.Context, conversationID string) (*domain.ConversationState, error) {
	if strings.TrimSpace(conversationID) == "" {
		return nil, errors.New("repository: LoadConversation: conversation id must not be empty")
	}
	item, err := s.kv.Get(ctx, ScopeConversation, conversationID)
	if err != nil {
		return nil, fmt.Errorf("repository: LoadConversation: %w", err)
	}
	if item.Version == 0 {
		return domain.NewConversationState(conversationID), nil
	}

	var st domain.ConversationState
	if err := sonic.Unmarshal(item.Data, &st); err != nil {
		return nil, fmt.Errorf("repository: LoadConversation decode %s: %w", conversationID, err)
	}
	if st.ConversationID == "" {
		st.ConversationID = conversationID
	}
	st.Version = item.Version
	return &st, nil
}

// SaveConversation writes st if nobody else saved it since it was loaded.
// On success st.Version is updated.
func (s *StateStore) SaveConversation(ctx context.Context, st *domain.ConversationState) error {
	if st == nil {
		return errors.New("repository: SaveConversation: state must not be nil")
	}
	data, err := sonic.Marshal(st)
	if err != nil {
		return fmt.Errorf("repository: SaveConversation encode: %w", err)
	}
	v, err := s.kv.Put(ctx, ScopeConversation, st.ConversationID, data, st.Version)
	if err != nil {
		return fmt.Errorf("repository: SaveConversation: %w", err)
	}
	st.Version = v
	return nil
}

func (s *StateStore) LoadUser(ctx context.Context, userID string) (*domain.UserState, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errors.New("repository: LoadUser: user id must not be empty")
	}
	item, err := s.kv.Get(ctx, ScopeUser, userID)
	if err != nil {
		return nil, fmt.Errorf("repository: LoadUser: %w", err)
	}
	if item.Version == 0 {
		return domain.NewUserState(userID), nil
	}

	var st domain.UserState
	if err := sonic.Unmarshal(item.Data, &st); err != nil {
		return nil, fmt.Errorf("repository: LoadUser decode %s: %w", userID, err)
	}
	if st.UserID == "" {
		st.UserID = userID
	}
	st.Version = item.Version
	return &st, nil
}

func (s *StateStore) SaveUser(ctx context.Context, st *domain.UserState) error {
	if st == nil {
		return errors.New("repository: SaveUser: state must not be nil")
	}
	data, err := sonic.Marshal(st)
	if err != nil {
		return fmt.Errorf("repository: SaveUser encode: %w", err)
	}
	v, err := s.kv.Put(ctx, ScopeUser, st.UserID, data, st.Version)
	if err != nil {
		return fmt.Errorf("repository: SaveUser: %w", err)
	}
	st.Version = v
	return nil
}
