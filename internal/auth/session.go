package auth

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// CookieName is the browser session cookie.
const CookieName = "vh_session"

var (
	// ErrInvalidSession is returned for an unknown session id.
	ErrInvalidSession = errors.New("invalid session")
	// ErrSessionExpired is returned for a session past its expiry.
	ErrSessionExpired = errors.New("session expired")
)

// Session is a server-side sign-in record. Bearer tokens reference it by id,
// so deleting the row revokes them.
type Session struct {
	ID        string
	AccountID string
	UserAgent string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// SessionStore manages sessions in SQLite.
type SessionStore struct {
	db     *sql.DB
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

// NewSessionStore creates a session store.
func NewSessionStore(db *sql.DB, cfg Config) *SessionStore {
	return &SessionStore{db: db, ttl: cfg.sessionTTL(), secure: cfg.SecureCookies, now: time.Now}
}

// Create starts a session for the account.
func (s *SessionStore) Create(ctx context.Context, accountID, userAgent string) (Session, error) {
	id, err := generateSessionID()
	if err != nil {
		return Session{}, fmt.Errorf("generating session ID: %w", err)
	}

	now := s.now()
	sess := Session{
		ID:        id,
		AccountID: accountID,
		UserAgent: userAgent,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}

	if _, err := s.db.ExecContext(ctx,
		"INSERT INTO sessions (id, account_id, expires_at, created_at, user_agent) VALUES (?, ?, ?, ?, ?)",
		sess.ID, sess.AccountID, sess.ExpiresAt.Unix(), sess.CreatedAt.Unix(), sess.UserAgent,
	); err != nil {
		return Session{}, fmt.Errorf("storing session: %w", err)
	}

	return sess, nil
}

// Lookup returns a live session. Expired sessions are removed.
func (s *SessionStore) Lookup(ctx context.Context, id string) (Session, error) {
	var sess Session
	var expiresAt, createdAt int64

	err := s.db.QueryRowContext(ctx,
		"SELECT id, account_id, expires_at, created_at, user_agent FROM sessions WHERE id = ?", id,
	).Scan(&sess.ID, &sess.AccountID, &expiresAt, &createdAt, &sess.UserAgent)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrInvalidSession
	}
	if err != nil {
		return Session{}, fmt.Errorf("querying session: %w", err)
	}
	sess.ExpiresAt = time.Unix(expiresAt, 0)
	sess.CreatedAt = time.Unix(createdAt, 0)

	if s.now().After(sess.ExpiresAt) {
		if err := s.Delete(ctx, id); err != nil {
			return Session{}, fmt.Errorf("deleting expired session: %w", err)
		}
		return Session{}, ErrSessionExpired
	}

	return sess, nil
}

// Delete removes a session. Unknown ids are ignored.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// DeleteForAccount ends every session of an account.
func (s *SessionStore) DeleteForAccount(ctx context.Context, accountID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE account_id = ?", accountID); err != nil {
		return fmt.Errorf("deleting account sessions: %w", err)
	}
	return nil
}

// Cleanup removes expired sessions.
func (s *SessionStore) Cleanup(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM sessions WHERE expires_at < ?", s.now().Unix(),
	); err != nil {
		return fmt.Errorf("cleaning up sessions: %w", err)
	}
	return nil
}

// SetCookie writes the session cookie.
func (s *SessionStore) SetCookie(w http.ResponseWriter, sess Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    sess.ID,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie.
func (s *SessionStore) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
