package auth

import (
	"errors"
	"time"

	"salon-ledger/internal/models"
	"salon-ledger/internal/storage"

	"github.com/google/uuid"
)

// ErrNoSession is returned when no valid session exists for a token.
// Absent, expired, and malformed sessions are indistinguishable.
var ErrNoSession = errors.New("auth: no valid session")

// SessionManager owns the persisted login sessions. Expiry is lazy: a
// session at or past its deadline is discarded on read, never repaired.
type SessionManager struct {
	db        *storage.DB
	ttl       time.Duration
	warnBand  time.Duration
	ownerName string

	now func() time.Time
}

// NewSessionManager creates a session manager issuing sessions of the
// given lifetime, with the low-time warning raised once inside warnBand.
func NewSessionManager(db *storage.DB, ttl, warnBand time.Duration, ownerName string) *SessionManager {
	return &SessionManager{
		db:        db,
		ttl:       ttl,
		warnBand:  warnBand,
		ownerName: ownerName,
		now:       time.Now,
	}
}

// Open persists a new session for the identity and returns it. The token
// is a fresh UUID; any prior session the client held is simply abandoned
// and swept later.
func (m *SessionManager) Open(id Identity) (*models.Session, error) {
	if !id.Authenticated() {
		return nil, ErrNoSession
	}

	now := m.now()
	s := &models.Session{
		Token:      uuid.NewString(),
		Role:       string(id.Role),
		EmployeeID: id.EmployeeID(),
		IssuedAt:   now,
		ExpiresAt:  now.Add(m.ttl),
	}
	if err := m.db.CreateSession(s); err != nil {
		return nil, err
	}
	return s, nil
}

// Current resolves a token to its identity. A session is valid strictly
// before its expiry; an expired, unknown, or malformed record is cleared
// and reported as ErrNoSession. Calling twice after expiry is a no-op the
// second time.
func (m *SessionManager) Current(token string) (Identity, error) {
	s, err := m.load(token)
	if err != nil {
		return Identity{}, err
	}

	switch Role(s.Role) {
	case RoleOwner:
		return Identity{Role: RoleOwner, Name: m.ownerName, Position: "Owner"}, nil
	case RoleEmployee:
		emp, err := m.db.GetEmployee(s.EmployeeID)
		if err != nil {
			// The employee is gone; the session is as good as malformed.
			if errors.Is(err, storage.ErrNotFound) {
				return Identity{}, m.discard(token)
			}
			return Identity{}, err
		}
		return EmployeeIdentity(emp), nil
	default:
		return Identity{}, m.discard(token)
	}
}

// Extend re-issues a currently valid session with a fresh expiry and
// clears its warning state. It fails with ErrNoSession otherwise.
func (m *SessionManager) Extend(token string) error {
	if _, err := m.load(token); err != nil {
		return err
	}
	now := m.now()
	return m.db.RenewSession(token, now, now.Add(m.ttl))
}

// Close unconditionally deletes the session.
func (m *SessionManager) Close(token string) error {
	return m.db.DeleteSession(token)
}

// TimeRemaining returns whole minutes until expiry, floored, never
// negative; 0 if there is no valid session.
func (m *SessionManager) TimeRemaining(token string) int {
	s, err := m.load(token)
	if err != nil {
		return 0
	}
	left := s.ExpiresAt.Sub(m.now())
	if left <= 0 {
		return 0
	}
	return int(left / time.Minute)
}

// Status is the result of a liveness check.
type Status struct {
	MinutesLeft int  `json:"minutes_left"`
	Warning     bool `json:"warning"`
	WarnNow     bool `json:"warn_now"`
}

// Check performs one liveness inspection of the session. Inside the
// warning band it reports Warning on every call but WarnNow only the
// first time, so repeated checks never duplicate the user-visible alert.
// An expired session yields ErrNoSession.
func (m *SessionManager) Check(token string) (Status, error) {
	s, err := m.load(token)
	if err != nil {
		return Status{}, err
	}

	left := s.ExpiresAt.Sub(m.now())
	st := Status{MinutesLeft: int(left / time.Minute)}

	if left <= m.warnBand {
		st.Warning = true
		if !s.Warned {
			st.WarnNow = true
			if err := m.db.MarkSessionWarned(token); err != nil {
				return Status{}, err
			}
		}
	}

	return st, nil
}

// load fetches a session row and enforces lazy expiry: anything invalid
// is cleared from storage and reported as ErrNoSession.
func (m *SessionManager) load(token string) (*models.Session, error) {
	if token == "" {
		return nil, ErrNoSession
	}

	s, err := m.db.GetSession(token)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNoSession
		}
		return nil, err
	}

	// Strict less-than: a session expiring exactly now is already dead.
	if !m.now().Before(s.ExpiresAt) {
		return nil, m.discard(token)
	}

	return s, nil
}

func (m *SessionManager) discard(token string) error {
	if err := m.db.DeleteSession(token); err != nil {
		return err
	}
	return ErrNoSession
}
