package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"maptss.ao/internal/kv"
)

// Persisted keys, outside the record collection namespace.
const (
	UsersKey   = "maptss_users"
	SessionKey = "maptss_session"
)

// kvStore persists the user table and the current session.
type kvStore struct {
	kv kv.Store
}

func (s kvStore) users(ctx context.Context) ([]User, error) {
	raw, err := s.kv.Get(ctx, UsersKey)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	var users []User
	if err := json.Unmarshal([]byte(raw), &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return users, nil
}

func (s kvStore) saveUsers(ctx context.Context, users []User) error {
	if users == nil {
		users = []User{}
	}
	raw, err := json.Marshal(users)
	if err != nil {
		return fmt.Errorf("encode users: %w", err)
	}
	if err := s.kv.Set(ctx, UsersKey, string(raw)); err != nil {
		return fmt.Errorf("save users: %w", err)
	}
	return nil
}

func (s kvStore) session(ctx context.Context) (*Session, error) {
	raw, err := s.kv.Get(ctx, SessionKey)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		// unreadable sessions are dropped like expired ones
		return nil, nil
	}
	return &sess, nil
}

func (s kvStore) saveSession(ctx context.Context, sess Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.kv.Set(ctx, SessionKey, string(raw)); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s kvStore) clearSession(ctx context.Context) error {
	if err := s.kv.Remove(ctx, SessionKey); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func findUser(users []User, match func(User) bool) int {
	for i, u := range users {
		if match(u) {
			return i
		}
	}
	return -1
}
