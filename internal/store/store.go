// Package store persists external-bot ownership data: which chat user
// registered which domain, plus per-user conversation state for multi-step
// dialogs. Values are JSON documents in BadgerDB.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/ifpanel/ifpanel-go/internal/domain"
)

// Options contains store configuration options
type Options struct {
	Directory string
	InMemory  bool
	Logger    bool
}

// Store is the ownership store backed by BadgerDB
type Store struct {
	db *badger.DB
}

// New opens (or creates) the store
func New(opts Options) (*Store, error) {
	var badgerOpts badger.Options

	if opts.InMemory {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if opts.Directory == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return nil, err
			}
			opts.Directory = homeDir + "/.ifpanel/store"
		}

		if err := os.MkdirAll(opts.Directory, 0755); err != nil {
			return nil, err
		}

		badgerOpts = badger.DefaultOptions(opts.Directory)
	}

	if !opts.Logger {
		badgerOpts = badgerOpts.WithLogger(nil)
	}

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, err
	}

	// Background value log garbage collection
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			_ = db.RunValueLogGC(0.5)
		}
	}()

	return &Store{db: db}, nil
}

// Close releases store resources
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) getJSON(key string, out interface{}) error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return domain.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, out)
		})
	})
}

func (s *Store) setJSON(key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// UpsertUser records a chat user, preserving the original creation time on
// repeated upserts.
func (s *Store) UpsertUser(ctx context.Context, user domain.ChatUser) error {
	now := time.Now().UTC()

	var existing domain.ChatUser
	err := s.getJSON(UserKey(user.ID), &existing)
	switch {
	case err == nil:
		user.CreatedAt = existing.CreatedAt
	case errors.Is(err, domain.ErrNotFound):
		user.CreatedAt = now
	default:
		return err
	}
	user.UpdatedAt = now

	return s.setJSON(UserKey(user.ID), user)
}

// GetUser looks up a chat user; domain.ErrNotFound when absent.
func (s *Store) GetUser(ctx context.Context, userID int64) (*domain.ChatUser, error) {
	var user domain.ChatUser
	if err := s.getJSON(UserKey(userID), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UserDomains returns the domains a chat user registered, oldest first.
// A user with no domains yields an empty slice, not an error.
func (s *Store) UserDomains(ctx context.Context, userID int64) ([]domain.OwnedDomain, error) {
	var domains []domain.OwnedDomain
	err := s.getJSON(DomainsKey(userID), &domains)
	if errors.Is(err, domain.ErrNotFound) {
		return []domain.OwnedDomain{}, nil
	}
	if err != nil {
		return nil, err
	}
	return domains, nil
}

// AddDomain appends a domain to a user's ownership list. Re-adding an
// existing domain updates its metadata in place.
func (s *Store) AddDomain(ctx context.Context, userID int64, owned domain.OwnedDomain) error {
	if owned.CreatedAt.IsZero() {
		owned.CreatedAt = time.Now().UTC()
	}

	domains, err := s.UserDomains(ctx, userID)
	if err != nil {
		return err
	}

	replaced := false
	for i, existing := range domains {
		if existing.Domain == owned.Domain {
			owned.CreatedAt = existing.CreatedAt
			domains[i] = owned
			replaced = true
			break
		}
	}
	if !replaced {
		domains = append(domains, owned)
	}

	return s.setJSON(DomainsKey(userID), domains)
}

// RemoveDomain drops a domain from a user's ownership list. Removing a
// domain the user does not own returns domain.ErrNotFound.
func (s *Store) RemoveDomain(ctx context.Context, userID int64, domainName string) error {
	domains, err := s.UserDomains(ctx, userID)
	if err != nil {
		return err
	}

	kept := domains[:0]
	found := false
	for _, existing := range domains {
		if existing.Domain == domainName {
			found = true
			continue
		}
		kept = append(kept, existing)
	}
	if !found {
		return domain.ErrNotFound
	}

	return s.setJSON(DomainsKey(userID), kept)
}

// GetState returns a user's conversation state; domain.ErrNotFound when the
// user has no dialog in flight.
func (s *Store) GetState(ctx context.Context, userID int64) (*domain.ConversationState, error) {
	var state domain.ConversationState
	if err := s.getJSON(StateKey(userID), &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// SetState stores a user's conversation state
func (s *Store) SetState(ctx context.Context, userID int64, state domain.ConversationState) error {
	state.UpdatedAt = time.Now().UTC()
	return s.setJSON(StateKey(userID), state)
}

// ClearState removes a user's conversation state. Clearing absent state is
// a no-op.
func (s *Store) ClearState(ctx context.Context, userID int64) error {
	return s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete([]byte(StateKey(userID)))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}
