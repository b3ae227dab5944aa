// Package session drives the per-account lifecycle state machine from
// provider events, keeps the registry and persistence collaborator in
// step, and pushes every state change to realtime subscribers.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/wappgate/wappgate/internal/domain"
	"github.com/wappgate/wappgate/internal/provider"
	"github.com/wappgate/wappgate/internal/registry"
	"github.com/wappgate/wappgate/internal/storage"
	realtimeTypes "github.com/wappgate/wappgate/pkg/realtime"
)

const DefaultInitTimeout = 3 * time.Minute

// Broadcaster is the slice of the realtime gateway the controller needs.
type Broadcaster interface {
	BroadcastAll(msg realtimeTypes.ServerEnvelope)
}

type Config struct {
	Registry    *registry.Registry
	Store       storage.Store
	Hub         Broadcaster
	Factory     provider.Factory
	Handler     MessageHandler
	InitTimeout time.Duration
	BacklogCap  int
	Logger      zerolog.Logger
}

type Controller struct {
	registry    *registry.Registry
	store       storage.Store
	hub         Broadcaster
	factory     provider.Factory
	syncer      *Syncer
	initTimeout time.Duration
	log         zerolog.Logger

	mu      sync.Mutex
	records map[string]*domain.SessionRecord
}

func NewController(cfg Config) *Controller {
	initTimeout := cfg.InitTimeout
	if initTimeout <= 0 {
		initTimeout = DefaultInitTimeout
	}
	log := cfg.Logger.With().Str("component", "session-controller").Logger()
	return &Controller{
		registry:    cfg.Registry,
		store:       cfg.Store,
		hub:         cfg.Hub,
		factory:     cfg.Factory,
		syncer:      NewSyncer(cfg.Handler, cfg.BacklogCap, cfg.Logger),
		initTimeout: initTimeout,
		log:         log,
		records:     make(map[string]*domain.SessionRecord),
	}
}

// recordFor returns the live record for accountID, restoring the persisted
// snapshot (credentials, retry counter) when one exists so reconnect
// attempts carry their history.
func (c *Controller) recordFor(accountID string) *domain.SessionRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	if rec, ok := c.records[accountID]; ok {
		return rec
	}

	rec := domain.NewSessionRecord(accountID)
	if c.store != nil {
		if snap, err := c.store.Load(accountID); err == nil {
			rec.Retries = snap.Retries
			rec.SetCredentials(snap.Credentials)
		} else if !errors.Is(err, storage.ErrNotFound) {
			c.log.Warn().Err(err).Str("account", accountID).Msg("failed to load persisted session state")
		}
	}
	c.records[accountID] = rec
	return rec
}

// Initialize starts (or restarts) the provider connection for accountID
// and blocks until the attempt settles: the live session once the
// provider reports ready, or an error on auth failure, startup error,
// context cancellation or timeout. Later provider events keep updating
// the record and broadcasting; they never re-settle this result.
func (c *Controller) Initialize(ctx context.Context, accountID string) (provider.Session, error) {
	rec := c.recordFor(accountID)

	sess, err := c.factory(accountID, rec.Snapshot().Credentials)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider session for %s: %w", accountID, err)
	}

	slot := newSettleSlot()
	go c.pump(rec, sess, slot)

	if err := sess.Initialize(ctx); err != nil {
		c.log.Error().Err(err).Str("account", accountID).Msg("provider initialization failed")
		slot.fail(err)
		_ = sess.Destroy()
	}

	timer := time.NewTimer(c.initTimeout)
	defer timer.Stop()

	select {
	case res := <-slot.wait():
		return res.sess, res.err
	case <-timer.C:
		slot.fail(domain.ErrInitTimeout)
	case <-ctx.Done():
		slot.fail(ctx.Err())
	}

	// The slot may have been settled by the pump between the timeout
	// firing and our fail attempt; the first settlement wins either way.
	res := <-slot.wait()
	return res.sess, res.err
}

// pump consumes the provider event stream for one account. Events arrive
// serially, so the transitions below need no further ordering.
func (c *Controller) pump(rec *domain.SessionRecord, sess provider.Session, slot *settleSlot) {
	accountID := rec.AccountID
	log := c.log.With().Str("account", accountID).Logger()

	for ev := range sess.Events() {
		switch ev.Type {
		case domain.EventQR:
			log.Info().Msg("pairing challenge received")
			rec.ApplyQR(ev.Challenge)
			if _, err := c.registry.Get(accountID); errors.Is(err, domain.ErrSessionNotFound) {
				c.registry.Put(accountID, sess)
			}
			c.persistAndBroadcast(rec)

		case domain.EventAuthenticated:
			log.Info().Msg("session authenticated")
			rec.ApplyAuthenticated()

		case domain.EventReady:
			log.Info().Msg("session ready")
			rec.ApplyReady()
			c.registry.Put(accountID, sess)
			c.persistAndBroadcast(rec)
			slot.succeed(sess)
			go c.syncer.Run(context.Background(), accountID, sess)

		case domain.EventAuthFailure:
			log.Error().Str("reason", ev.Reason).Msg("session authentication failed")
			rec.ApplyAuthFailure()
			c.persistAndBroadcast(rec)
			slot.fail(fmt.Errorf("%w: %s", domain.ErrAuthFailed, ev.Reason))

		case domain.EventDisconnected:
			log.Info().Str("reason", ev.Reason).Msg("session disconnected")
			rec.ApplyDisconnected()
		}
	}
}

// persistAndBroadcast pushes the current record snapshot to the
// persistence collaborator (fire-and-forget) and to every realtime
// subscriber.
func (c *Controller) persistAndBroadcast(rec *domain.SessionRecord) {
	snap := rec.Snapshot()

	if c.store != nil {
		if err := c.store.UpdateSessionState(rec.AccountID, snap); err != nil {
			c.log.Warn().Err(err).Str("account", rec.AccountID).Msg("failed to persist session state")
		}
	}
	if c.hub != nil {
		c.hub.BroadcastAll(realtimeTypes.ServerEnvelope{
			Event: realtimeTypes.EventSession,
			Payload: realtimeTypes.SessionUpdatePayload{
				Action:  "update",
				Session: snap,
			},
		})
	}
}

// RemoveSession tears down the account's connection and forgets its
// record. In-flight operations holding the old handle fail naturally on
// their next registry lookup.
func (c *Controller) RemoveSession(accountID string) {
	c.registry.Remove(accountID)

	c.mu.Lock()
	delete(c.records, accountID)
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.Delete(accountID); err != nil && !errors.Is(err, storage.ErrNotFound) {
			c.log.Warn().Err(err).Str("account", accountID).Msg("failed to delete persisted session state")
		}
	}
}

// Record returns the live record for an account, if any.
func (c *Controller) Record(accountID string) (*domain.SessionRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.records[accountID]
	return rec, ok
}

// Snapshots lists a point-in-time copy of every tracked session record.
func (c *Controller) Snapshots() []domain.SessionSnapshot {
	c.mu.Lock()
	records := make([]*domain.SessionRecord, 0, len(c.records))
	for _, rec := range c.records {
		records = append(records, rec)
	}
	c.mu.Unlock()

	snaps := make([]domain.SessionSnapshot, 0, len(records))
	for _, rec := range records {
		snaps = append(snaps, rec.Snapshot())
	}
	return snaps
}
