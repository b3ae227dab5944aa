// Package storage persists session-state snapshots. The lifecycle
// controller writes through UpdateSessionState fire-and-forget; a write
// failure is logged by the caller and never reaches the state machine.
package storage

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/wappgate/wappgate/internal/domain"
)

var (
	ErrNotFound         = errors.New("session record not found")
	ErrInvalidAccountID = errors.New("invalid account id")
)

var accountIDRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

func validateAccountID(id string) error {
	if !accountIDRegex.MatchString(id) {
		return fmt.Errorf("%w: %s", ErrInvalidAccountID, id)
	}
	return nil
}

type Store interface {
	UpdateSessionState(accountID string, snap domain.SessionSnapshot) error
	Load(accountID string) (domain.SessionSnapshot, error)
	List() ([]domain.SessionSnapshot, error)
	Delete(accountID string) error
	Close() error
}

// recordData is the persisted wire form of a session snapshot.
type recordData struct {
	AccountID   string    `json:"account_id"`
	Status      string    `json:"status"`
	QRCode      string    `json:"qrcode,omitempty"`
	Retries     int       `json:"retries"`
	Credentials []byte    `json:"credentials,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toRecordData(snap domain.SessionSnapshot) recordData {
	return recordData{
		AccountID:   snap.AccountID,
		Status:      snap.State,
		QRCode:      snap.QRCode,
		Retries:     snap.Retries,
		Credentials: snap.Credentials,
		CreatedAt:   snap.CreatedAt,
		UpdatedAt:   snap.UpdatedAt,
	}
}

func fromRecordData(data recordData) domain.SessionSnapshot {
	return domain.SessionSnapshot{
		AccountID:   data.AccountID,
		State:       data.Status,
		QRCode:      data.QRCode,
		Retries:     data.Retries,
		Credentials: data.Credentials,
		CreatedAt:   data.CreatedAt,
		UpdatedAt:   data.UpdatedAt,
	}
}
