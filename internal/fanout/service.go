package fanout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kylejryan/claim-workflow-engine/internal/authz"
	"github.com/kylejryan/claim-workflow-engine/internal/models"
	"github.com/kylejryan/claim-workflow-engine/internal/wire"
)

// ErrTooManyConnections is returned when a user is already at their
// connection cap.
var ErrTooManyConnections = errors.New("too many connections")

// Service owns connection lifecycle, client messages, and dispatch.
type Service struct {
	registry Registry
	pusher   Pusher
	verifier authz.Verifier
	maxConns int
	ttl      time.Duration
	now      func() time.Time
}

// NewService wires the fan-out service. maxConns caps live connections per
// user; ttl bounds how long an unclosed connection record survives. verifier
// may be nil for wirings that never serve the connect route.
func NewService(registry Registry, pusher Pusher, verifier authz.Verifier, maxConns int, ttl time.Duration) *Service {
	return &Service{
		registry: registry,
		pusher:   pusher,
		verifier: verifier,
		maxConns: maxConns,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Connect verifies the token, enforces the per-user cap against live
// records only, and registers the connection.
func (s *Service) Connect(ctx context.Context, connectionID, token string) error {
	if s.verifier == nil {
		return authz.ErrUnauthorized
	}
	ident, err := s.verifier.Verify(ctx, token)
	if err != nil {
		return err
	}

	existing, err := s.registry.ListByUser(ctx, ident.UserID)
	if err != nil {
		return err
	}
	now := s.now()
	live := 0
	for _, c := range existing {
		if c.Live(now) {
			live++
		}
	}
	if live >= s.maxConns {
		return fmt.Errorf("%w: user %s has %d", ErrTooManyConnections, ident.UserID, live)
	}

	conn := models.Connection{
		ConnectionID: connectionID,
		UserID:       ident.UserID,
		ConnectedAt:  now.UTC().Format(time.RFC3339),
		TTL:          now.Add(s.ttl).Unix(),
	}
	if err := s.registry.Put(ctx, conn); err != nil {
		return err
	}

	log.Info().Str("connectionId", connectionID).Str("userId", ident.UserID).Msg("connection registered")
	return nil
}

// Disconnect removes the connection record; unknown connections are a no-op.
func (s *Service) Disconnect(ctx context.Context, connectionID string) error {
	return s.registry.Delete(ctx, connectionID)
}

// HandleMessage processes one client frame on an established connection.
// Ping gets a pong, subscribe merges claim ids into the connection's
// subscription set, anything else is acknowledged with an echo.
func (s *Service) HandleMessage(ctx context.Context, connectionID string, body []byte) error {
	var msg wire.ClientMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return s.respond(ctx, connectionID, "error", map[string]string{"reason": "malformed message"})
	}

	switch msg.Action {
	case wire.ActionPing:
		return s.respond(ctx, connectionID, "pong", nil)

	case wire.ActionSubscribe:
		if msg.ClaimID == "" {
			return s.respond(ctx, connectionID, "error", map[string]string{"reason": "subscribe requires claimId"})
		}
		conn, err := s.registry.Get(ctx, connectionID)
		if err != nil {
			return err
		}
		if conn == nil {
			return fmt.Errorf("%w: %s", ErrGone, connectionID)
		}
		if !conn.Subscribed(msg.ClaimID) {
			conn.Subscriptions = append(conn.Subscriptions, msg.ClaimID)
			if err := s.registry.Put(ctx, *conn); err != nil {
				return err
			}
		}
		return s.respond(ctx, connectionID, "subscribed", map[string]any{
			"claimId":       msg.ClaimID,
			"subscriptions": conn.Subscriptions,
		})

	default:
		return s.respond(ctx, connectionID, "echo", msg)
	}
}

// Dispatch routes one notification to its target connections: the user's
// connections when userId is set, subscribers of the claim when only claimId
// is set, otherwise every live connection. Returns the number of deliveries
// and the number of stale records pruned.
func (s *Service) Dispatch(ctx context.Context, n wire.Notification) (sent, removed int, err error) {
	targets, err := s.targets(ctx, n)
	if err != nil {
		return 0, 0, err
	}

	n.MessageType = wire.MessageTypeNotification
	payload, err := json.Marshal(wire.ServerPayload{
		Type:      wire.MessageTypeNotification,
		Timestamp: s.now().UTC().Format(time.RFC3339),
		Data:      n,
	})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to marshal notification: %w", err)
	}

	now := s.now()
	for _, conn := range targets {
		if !conn.Live(now) {
			continue
		}
		pushErr := s.pusher.Push(ctx, conn.ConnectionID, payload)
		switch {
		case pushErr == nil:
			sent++
		case errors.Is(pushErr, ErrGone):
			// Self-heal: the socket closed without a disconnect event.
			if delErr := s.registry.Delete(ctx, conn.ConnectionID); delErr != nil {
				log.Warn().Err(delErr).Str("connectionId", conn.ConnectionID).Msg("failed to prune gone connection")
			} else {
				removed++
			}
		default:
			log.Warn().Err(pushErr).Str("connectionId", conn.ConnectionID).Msg("push failed")
		}
	}
	return sent, removed, nil
}

func (s *Service) targets(ctx context.Context, n wire.Notification) ([]models.Connection, error) {
	if n.UserID != "" {
		return s.registry.ListByUser(ctx, n.UserID)
	}

	all, err := s.registry.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	if n.ClaimID == "" {
		return all, nil
	}

	var subs []models.Connection
	for _, c := range all {
		if c.Subscribed(n.ClaimID) {
			subs = append(subs, c)
		}
	}
	return subs, nil
}

func (s *Service) respond(ctx context.Context, connectionID, kind string, data any) error {
	payload, err := json.Marshal(wire.ServerPayload{
		Type:      kind,
		Timestamp: s.now().UTC().Format(time.RFC3339),
		Data:      data,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", kind, err)
	}

	pushErr := s.pusher.Push(ctx, connectionID, payload)
	if errors.Is(pushErr, ErrGone) {
		// The socket closed mid-exchange; drop its record now instead of
		// waiting for TTL expiry.
		if delErr := s.registry.Delete(ctx, connectionID); delErr != nil {
			log.Warn().Err(delErr).Str("connectionId", connectionID).Msg("failed to prune gone connection")
		}
	}
	return pushErr
}
