package backup

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/JonMunkholm/ledgersync/internal/drive"
	"golang.org/x/oauth2"
)

// expiryLeeway treats a token about to expire as already expired.
const expiryLeeway = 30 * time.Second

// Session is the persisted backup connection: the bearer credential and the
// remote file that backups are written to.
type Session struct {
	AccessToken string    `json:"access_token,omitempty"`
	Expiry      time.Time `json:"expiry,omitempty"`
	FileID      string    `json:"file_id,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

// SessionStatus is the public view of a Session. It never exposes the token.
type SessionStatus struct {
	Connected bool      `json:"connected"`
	Expiry    time.Time `json:"expiry,omitempty"`
	FileID    string    `json:"fileId,omitempty"`
}

// SessionStore holds the Session in memory and mirrors it to a JSON file.
// An empty path keeps it in memory only. Safe for concurrent use.
type SessionStore struct {
	path string
	now  func() time.Time

	mu      sync.RWMutex
	session Session
}

// OpenSessionStore loads the session file at path. A missing file is an
// empty session.
func OpenSessionStore(path string) (*SessionStore, error) {
	s := &SessionStore{path: path, now: time.Now}
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	if err := json.Unmarshal(data, &s.session); err != nil {
		return nil, fmt.Errorf("parse session %s: %w", path, err)
	}
	return s, nil
}

// Get returns a copy of the session.
func (s *SessionStore) Get() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// Status reports whether a usable credential is stored.
func (s *SessionStore) Status() SessionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SessionStatus{
		Connected: s.validLocked(),
		Expiry:    s.session.Expiry,
		FileID:    s.session.FileID,
	}
}

// Connected reports whether Token would succeed.
func (s *SessionStore) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.validLocked()
}

func (s *SessionStore) validLocked() bool {
	if s.session.AccessToken == "" {
		return false
	}
	return s.session.Expiry.IsZero() || s.now().Add(expiryLeeway).Before(s.session.Expiry)
}

// Token implements oauth2.TokenSource. A missing or expired credential
// returns drive.ErrCredentialExpired before any request is sent.
func (s *SessionStore) Token() (*oauth2.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.validLocked() {
		return nil, drive.ErrCredentialExpired
	}
	return &oauth2.Token{
		AccessToken: s.session.AccessToken,
		TokenType:   "Bearer",
		Expiry:      s.session.Expiry,
	}, nil
}

// Connect stores a new credential. A non-empty fileID replaces the
// remembered backup file.
func (s *SessionStore) Connect(token string, expiry time.Time, fileID string) error {
	return s.update(func(sess *Session) {
		sess.AccessToken = token
		sess.Expiry = expiry
		if fileID != "" {
			sess.FileID = fileID
		}
	})
}

// SetFileID remembers the remote backup file.
func (s *SessionStore) SetFileID(id string) error {
	return s.update(func(sess *Session) { sess.FileID = id })
}

// ClearCredential drops the token but keeps the remembered file, so a
// reconnect keeps writing to the same backup.
func (s *SessionStore) ClearCredential() error {
	return s.update(func(sess *Session) {
		sess.AccessToken = ""
		sess.Expiry = time.Time{}
	})
}

// Disconnect forgets the whole session.
func (s *SessionStore) Disconnect() error {
	return s.update(func(sess *Session) { *sess = Session{} })
}

func (s *SessionStore) update(fn func(*Session)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.session
	fn(&next)
	next.UpdatedAt = s.now()

	if err := s.persist(next); err != nil {
		return err
	}
	s.session = next
	return nil
}

// persist writes the session atomically with owner-only permissions.
func (s *SessionStore) persist(sess Session) error {
	if s.path == "" {
		return nil
	}

	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace session: %w", err)
	}
	return nil
}
