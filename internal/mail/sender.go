package mail

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"dayplan/internal/metrics"
)

// RetryPolicy bounds how hard a Sender tries before giving up.
type RetryPolicy struct {
	// MaxAttempts is the number of passes over the endpoint list.
	MaxAttempts int
	// BaseDelay is scaled by 2^attempt between passes.
	BaseDelay time.Duration
}

// DefaultRetryPolicy makes two passes and waits 2s between them.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 2, BaseDelay: time.Second}

func (p RetryPolicy) backoff(attempt int) time.Duration {
	return p.BaseDelay * time.Duration(1<<attempt)
}

// Dialer creates a fresh transport for an endpoint.
type Dialer func(Endpoint) Transport

// Sender delivers messages through an ordered list of endpoints with retries.
// It remembers which endpoint last succeeded and tries that one first.
type Sender struct {
	endpoints []Endpoint
	policy    RetryPolicy
	dial      Dialer
	sleep     func(context.Context, time.Duration) error
	logger    *zap.Logger
	preferred atomic.Int32
}

type Option func(*Sender)

func WithDialer(d Dialer) Option {
	return func(s *Sender) { s.dial = d }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Sender) { s.logger = l }
}

// WithSleep replaces the backoff wait, mainly for tests.
func WithSleep(fn func(context.Context, time.Duration) error) Option {
	return func(s *Sender) { s.sleep = fn }
}

func NewSender(endpoints []Endpoint, policy RetryPolicy, opts ...Option) *Sender {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = DefaultRetryPolicy.MaxAttempts
	}
	if policy.BaseDelay < 0 {
		policy.BaseDelay = 0
	}
	s := &Sender{
		endpoints: append([]Endpoint(nil), endpoints...),
		policy:    policy,
		dial:      DialSMTP,
		sleep:     sleepContext,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Preferred returns the index of the endpoint tried first on the next send.
func (s *Sender) Preferred() int {
	return int(s.preferred.Load())
}

// Send tries every endpoint once per attempt, starting from the preferred one,
// and backs off between attempts. It returns the Message-ID on success or a
// *SendError once all attempts are spent.
func (s *Sender) Send(ctx context.Context, msg Message) (string, error) {
	n := len(s.endpoints)
	if n == 0 {
		return "", ErrNoEndpoints
	}

	var errs []error
	for attempt := 1; attempt <= s.policy.MaxAttempts; attempt++ {
		first := s.Preferred() % n
		for i := 0; i < n; i++ {
			idx := (first + i) % n
			ep := s.endpoints[idx]

			id, err := s.dial(ep).Send(ctx, msg)
			if err == nil {
				s.preferred.Store(int32(idx))
				metrics.MailSends.WithLabelValues(ep.String(), "success").Inc()
				s.logger.Info("mail sent",
					zap.String("endpoint", ep.String()),
					zap.Int("attempt", attempt),
					zap.String("message_id", id),
				)
				return id, nil
			}

			te := classify(ep.String(), err)
			metrics.MailSends.WithLabelValues(ep.String(), "error").Inc()
			s.logger.Warn("mail send failed",
				zap.String("endpoint", ep.String()),
				zap.Int("attempt", attempt),
				zap.String("code", string(te.Code)),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("attempt %d: %w", attempt, te))
		}

		if attempt == s.policy.MaxAttempts {
			break
		}
		if err := s.sleep(ctx, s.policy.backoff(attempt)); err != nil {
			errs = append(errs, err)
			return "", &SendError{Attempts: attempt, Endpoints: n, Errs: errs}
		}
	}

	return "", &SendError{Attempts: s.policy.MaxAttempts, Endpoints: n, Errs: errs}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
