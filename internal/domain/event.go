package domain

import "time"

type ProviderEventType int

const (
	EventQR ProviderEventType = iota
	EventAuthenticated
	EventReady
	EventAuthFailure
	EventDisconnected
)

func (t ProviderEventType) String() string {
	switch t {
	case EventQR:
		return "qr"
	case EventAuthenticated:
		return "authenticated"
	case EventReady:
		return "ready"
	case EventAuthFailure:
		return "auth_failure"
	case EventDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// ProviderEvent is one lifecycle notification from a provider session.
// The variant determines which payload fields are meaningful: QR carries
// the pairing challenge, AuthFailure and Disconnected carry a reason.
type ProviderEvent struct {
	Type      ProviderEventType
	Challenge string
	Reason    string
	Timestamp time.Time
}

func NewQREvent(challenge string) ProviderEvent {
	return ProviderEvent{Type: EventQR, Challenge: challenge, Timestamp: time.Now()}
}

func NewAuthenticatedEvent() ProviderEvent {
	return ProviderEvent{Type: EventAuthenticated, Timestamp: time.Now()}
}

func NewReadyEvent() ProviderEvent {
	return ProviderEvent{Type: EventReady, Timestamp: time.Now()}
}

func NewAuthFailureEvent(reason string) ProviderEvent {
	return ProviderEvent{Type: EventAuthFailure, Reason: reason, Timestamp: time.Now()}
}

func NewDisconnectedEvent(reason string) ProviderEvent {
	return ProviderEvent{Type: EventDisconnected, Reason: reason, Timestamp: time.Now()}
}
