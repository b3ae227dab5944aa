package domain

import (
	"sync"
	"time"
)

type SessionState int

const (
	StateInitializing SessionState = iota
	StateAwaitingScan
	StateAuthenticated
	StateReady
	StateAuthFailed
	StateDisconnected
)

func (s SessionState) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateAwaitingScan:
		return "awaiting_scan"
	case StateAuthenticated:
		return "authenticated"
	case StateReady:
		return "ready"
	case StateAuthFailed:
		return "auth_failed"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// SessionRecord tracks one account's connection to the messaging network.
// It is mutated only by the lifecycle controller in response to provider
// events; everyone else reads through Snapshot.
type SessionRecord struct {
	AccountID   string
	State       SessionState
	QRCode      string
	Retries     int
	Credentials []byte
	CreatedAt   time.Time
	UpdatedAt   time.Time

	mu sync.RWMutex
}

func NewSessionRecord(accountID string) *SessionRecord {
	now := time.Now()
	return &SessionRecord{
		AccountID: accountID,
		State:     StateInitializing,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ApplyQR records a fresh pairing challenge. The provider may re-issue the
// challenge any number of times before it is scanned.
func (r *SessionRecord) ApplyQR(challenge string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.State = StateAwaitingScan
	r.QRCode = challenge
	r.Retries = 0
	r.UpdatedAt = time.Now()
}

func (r *SessionRecord) ApplyAuthenticated() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.State = StateAuthenticated
	r.UpdatedAt = time.Now()
}

// ApplyAuthFailure increments the retry counter and, once the account has
// already failed more than once, drops the stored credential blob so the
// next attempt starts from a clean pairing.
func (r *SessionRecord) ApplyAuthFailure() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Retries > 1 {
		r.Credentials = nil
	}
	r.Retries++
	r.State = StateAuthFailed
	r.UpdatedAt = time.Now()
}

// ApplyReady clears the pairing challenge and retry counter regardless of
// the prior state.
func (r *SessionRecord) ApplyReady() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.State = StateReady
	r.QRCode = ""
	r.Retries = 0
	r.UpdatedAt = time.Now()
}

func (r *SessionRecord) ApplyDisconnected() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.State = StateDisconnected
	r.UpdatedAt = time.Now()
}

func (r *SessionRecord) SetCredentials(blob []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Credentials = blob
	r.UpdatedAt = time.Now()
}

func (r *SessionRecord) GetState() SessionState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.State
}

// SessionSnapshot is a point-in-time, lock-free copy of a SessionRecord.
type SessionSnapshot struct {
	AccountID   string       `json:"accountId"`
	State       string       `json:"status"`
	QRCode      string       `json:"qrcode,omitempty"`
	Retries     int          `json:"retries"`
	Credentials []byte       `json:"-"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
	StateValue  SessionState `json:"-"`
}

// Snapshot returns an atomic copy of the record under its read lock.
func (r *SessionRecord) Snapshot() SessionSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var creds []byte
	if r.Credentials != nil {
		creds = make([]byte, len(r.Credentials))
		copy(creds, r.Credentials)
	}

	return SessionSnapshot{
		AccountID:   r.AccountID,
		State:       r.State.String(),
		QRCode:      r.QRCode,
		Retries:     r.Retries,
		Credentials: creds,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		StateValue:  r.State,
	}
}
