package session

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vcms/internal/models"
	"github.com/desertthunder/vcms/internal/repositories"
	"github.com/desertthunder/vcms/internal/shared"
)

// Fixed keys the session is stored under.
const (
	TokenKey = "auth_token"
	UserKey  = "current_user"
)

// Store persists the token and user across runs.
//
// Reads never fail: a missing value reads as absent, and a stored user that no longer decodes
// clears both keys and reads as absent.
type Store interface {
	SaveToken(token string) error
	Token() (string, bool)
	SaveUser(user models.User) error
	User() (*models.User, bool)
	SaveSession(token string, user models.User) error
	Clear() error
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*SQLStore)(nil)
)

// kv is the storage a store sits on.
type kv interface {
	Get(key string) (string, bool, error)
	SetMany(pairs map[string]string) error
	Delete(keys ...string) error
}

// kvStore implements [Store] over any [kv]. Writes are serialised.
type kvStore struct {
	mu     sync.Mutex
	kv     kv
	logger *log.Logger
}

func (s *kvStore) SaveToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kv.SetMany(map[string]string{TokenKey: token})
}

func (s *kvStore) Token() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok, err := s.kv.Get(TokenKey)
	if err != nil {
		s.logger.Warn("could not read stored token", "error", err)
		return "", false
	}
	return v, ok && v != ""
}

func (s *kvStore) SaveUser(user models.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kv.SetMany(map[string]string{UserKey: string(data)})
}

func (s *kvStore) User() (*models.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok, err := s.kv.Get(UserKey)
	if err != nil {
		s.logger.Warn("could not read stored user", "error", err)
		return nil, false
	}
	if !ok || raw == "" {
		return nil, false
	}

	var u models.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		s.logger.Warn("stored user is corrupt; clearing session", "error", err)
		if err := s.kv.Delete(TokenKey, UserKey); err != nil {
			s.logger.Error("could not clear corrupt session", "error", err)
		}
		return nil, false
	}
	return &u, true
}

func (s *kvStore) SaveSession(token string, user models.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kv.SetMany(map[string]string{TokenKey: token, UserKey: string(data)})
}

func (s *kvStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kv.Delete(TokenKey, UserKey)
}

// SQLStore keeps the session in the sqlite session_kv table.
type SQLStore struct {
	kvStore
}

// NewSQLStore creates a durable store over repo.
func NewSQLStore(repo *repositories.KVRepository, logger *log.Logger) *SQLStore {
	if logger == nil {
		logger = shared.NewDiscardLogger()
	}
	return &SQLStore{kvStore{kv: repo, logger: logger}}
}

// MemoryStore keeps the session for the life of the process.
type MemoryStore struct {
	kvStore
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{kvStore{kv: memKV{}, logger: shared.NewDiscardLogger()}}
}

type memKV map[string]string

func (m memKV) Get(key string) (string, bool, error) {
	v, ok := m[key]
	return v, ok, nil
}

func (m memKV) SetMany(pairs map[string]string) error {
	for k, v := range pairs {
		m[k] = v
	}
	return nil
}

func (m memKV) Delete(keys ...string) error {
	for _, k := range keys {
		delete(m, k)
	}
	return nil
}
