// Package dispatch delivers outbound messages over live provider
// sessions, retrying transient failures with a defect-aware backoff.
package dispatch

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/wappgate/wappgate/internal/domain"
	"github.com/wappgate/wappgate/internal/provider"
	"github.com/wappgate/wappgate/internal/registry"
)

const (
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = 800 * time.Millisecond
	DefaultDefectDelay = 1200 * time.Millisecond
)

// OutboundMessage is one send request. To is the raw, pre-normalization
// contact identifier; TicketID only tags log lines.
type OutboundMessage struct {
	AccountID       string
	To              string
	Body            string
	QuotedMessageID string
	TicketID        string
}

type Config struct {
	Registry    *registry.Registry
	MaxAttempts int
	RetryDelay  time.Duration
	DefectDelay time.Duration
	Logger      zerolog.Logger
}

type Dispatcher struct {
	registry    *registry.Registry
	maxAttempts int
	policy      backoffPolicy
	sleep       func(ctx context.Context, d time.Duration) error
	log         zerolog.Logger
}

func New(cfg Config) *Dispatcher {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = DefaultRetryDelay
	}
	defectDelay := cfg.DefectDelay
	if defectDelay <= 0 {
		defectDelay = DefaultDefectDelay
	}
	return &Dispatcher{
		registry:    cfg.Registry,
		maxAttempts: maxAttempts,
		policy:      backoffPolicy{retryDelay: retryDelay, defectDelay: defectDelay},
		sleep:       sleepContext,
		log:         cfg.Logger.With().Str("component", "dispatcher").Logger(),
	}
}

// Send validates and delivers one outbound message. Validation failures
// and a missing session surface immediately without touching the
// provider; everything else is retried up to the attempt budget before a
// SendFailedError wrapping the last provider error is returned.
func (d *Dispatcher) Send(ctx context.Context, msg OutboundMessage) error {
	chatID := NormalizeChatID(msg.To)
	if chatID == "" {
		return domain.NewValidationError("target", "does not normalize to an addressable chat id")
	}
	if strings.TrimSpace(msg.Body) == "" {
		return domain.NewValidationError("body", "must not be empty")
	}

	sess, err := d.registry.Get(msg.AccountID)
	if err != nil {
		return err
	}

	log := d.log.With().
		Str("account", msg.AccountID).
		Str("chat", chatID).
		Str("ticket", msg.TicketID).
		Logger()

	opts := provider.SendOptions{QuotedMessageID: msg.QuotedMessageID}

	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		attempts = attempt

		// Pre-resolving the chat warms the provider's handle cache; a
		// miss is not fatal, the send below addresses the chat directly.
		if _, err := sess.ChatByID(ctx, chatID); err != nil {
			log.Debug().Err(err).Int("attempt", attempt).Msg("chat resolution failed, sending by id")
		}

		err := sess.SendMessage(ctx, chatID, msg.Body, opts)
		if err == nil {
			log.Info().Int("attempt", attempt).Msg("message sent")
			return nil
		}
		lastErr = err

		log.Warn().Err(err).
			Int("attempt", attempt).
			Int("max_attempts", d.maxAttempts).
			Bool("known_defect", provider.IsMarkedUnreadDefect(err)).
			Msg("send attempt failed")

		if attempt == d.maxAttempts {
			break
		}
		if serr := d.sleep(ctx, d.policy.delayFor(err)); serr != nil {
			lastErr = serr
			break
		}
	}

	return &domain.SendFailedError{
		AccountID: msg.AccountID,
		Target:    chatID,
		Attempts:  attempts,
		Last:      lastErr,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
