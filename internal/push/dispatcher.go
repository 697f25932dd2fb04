package push

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/claudiator/server-go/internal/audit"
	"github.com/claudiator/server-go/internal/model"
	"github.com/claudiator/server-go/internal/util"
)

// Sender delivers a message to one token.
type Sender interface {
	Send(ctx context.Context, deviceToken string, sandbox bool, msg Message) Result
}

// TokenStore is the subset of the push token repository the dispatcher needs.
type TokenStore interface {
	List(ctx context.Context) ([]model.PushToken, error)
	Delete(ctx context.Context, token string) error
}

// Summary counts what happened during one fan-out.
type Summary struct {
	Sent    int
	Removed int
	Failed  int
	Halted  bool
}

// Dispatcher fans a notification out to every registered token in the background.
type Dispatcher struct {
	sender  Sender
	tokens  TokenStore
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewDispatcher(sender Sender, tokens TokenStore, timeout time.Duration) *Dispatcher {
	return &Dispatcher{sender: sender, tokens: tokens, timeout: timeout}
}

// Dispatch starts delivery and returns immediately.
func (d *Dispatcher) Dispatch(n model.Notification) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		d.Deliver(ctx, n)
	}()
}

// Wait blocks until every started fan-out has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Deliver sends n to every token in turn. Gone tokens are deleted; a
// throttling response stops the batch.
func (d *Dispatcher) Deliver(ctx context.Context, n model.Notification) Summary {
	var sum Summary

	tokens, err := d.tokens.List(ctx)
	if err != nil {
		log.Error().Err(err).Str("notification_id", n.ID).Msg("failed to list push tokens")
		return sum
	}

	msg := Message{
		Title:          n.Title,
		Body:           n.Body,
		CollapseID:     n.SessionID,
		NotificationID: n.ID,
		SessionID:      n.SessionID,
		DeviceID:       n.DeviceID,
	}

	for _, tok := range tokens {
		prefix := util.MaskToken(tok.PushToken, 8)
		res := d.sender.Send(ctx, tok.PushToken, tok.Sandbox, msg)

		switch res.Outcome {
		case OutcomeSuccess:
			sum.Sent++
		case OutcomeGone:
			if err := d.tokens.Delete(ctx, tok.PushToken); err != nil {
				log.Error().Err(err).Str("token_prefix", prefix).Msg("failed to delete unregistered push token")
				sum.Failed++
				continue
			}
			sum.Removed++
			audit.Log(ctx, audit.Event{
				Type:    audit.EventPushTokenRemoved,
				Details: map[string]interface{}{"token_prefix": prefix, "reason": res.Reason},
			})
		case OutcomeAuthError:
			sum.Failed++
			log.Error().Err(res.Err).Str("token_prefix", prefix).Msg("apns rejected provider credentials")
		case OutcomeRetry:
			sum.Failed++
			sum.Halted = true
			log.Warn().Int("status", res.Status).Str("token_prefix", prefix).Msg("apns throttled, stopping batch")
			return sum
		default:
			sum.Failed++
			log.Error().Err(res.Err).Str("token_prefix", prefix).Msg("push delivery failed")
		}
	}

	log.Info().
		Str("notification_id", n.ID).
		Int("sent", sum.Sent).
		Int("removed", sum.Removed).
		Int("failed", sum.Failed).
		Msg("push fan-out finished")
	return sum
}
