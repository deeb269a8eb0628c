package domain

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/rain-droid/orgIO/internal/observability"
	"github.com/rain-droid/orgIO/pkg/events"
)

const defaultNotifyTimeout = 2 * time.Second

// Agents bundles the language-model backed collaborators.
type Agents struct {
	Summarizer Summarizer
	Matcher    TaskMatcher
	Analyst    Analyst
}

// Option configures optional behaviour shared by the services.
type Option func(*base)

// WithLogger overrides the logger used to report absorbed failures.
func WithLogger(logger *log.Logger) Option {
	return func(b *base) {
		b.logger = logger
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(b *base) {
		b.now = now
	}
}

// WithNotifyTimeout bounds how long a notification may delay a response.
func WithNotifyTimeout(timeout time.Duration) Option {
	return func(b *base) {
		if timeout > 0 {
			b.notifyTimeout = timeout
		}
	}
}

// base carries the dependencies shared by SessionService and SubmissionService.
type base struct {
	store         Store
	agents        Agents
	notifier      Notifier
	logger        *log.Logger
	now           func() time.Time
	notifyTimeout time.Duration
}

func newBase(store Store, agents Agents, notifier Notifier, prefix string, opts []Option) base {
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	b := base{
		store:         store,
		agents:        agents,
		notifier:      notifier,
		logger:        log.New(log.Writer(), prefix, log.LstdFlags|log.Lshortfile),
		now:           func() time.Time { return time.Now().UTC() },
		notifyTimeout: defaultNotifyTimeout,
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// notify hands an envelope to the notifier without letting any failure reach
// the caller. The wait is bounded by notifyTimeout and survives request
// cancellation.
func (b *base) notify(ctx context.Context, orgID string, envelope events.Envelope) {
	if orgID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.notifyTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			b.logger.Printf("notify %s for org %s panicked: %v", envelope.Type, orgID, r)
			observability.RecordNotifyFailure(envelope.Type)
		}
	}()
	if err := b.notifier.Notify(ctx, orgID, envelope); err != nil {
		b.logger.Printf("notify %s for org %s failed: %v", envelope.Type, orgID, err)
		observability.RecordNotifyFailure(envelope.Type)
	}
}

// resolveOrg prefers the organization on the token and falls back to the
// stored profile, which is updated by webhooks before tokens refresh.
func (b *base) resolveOrg(ctx context.Context, caller Caller) (string, *User, error) {
	if caller.OrgID != "" {
		return caller.OrgID, nil, nil
	}
	user, err := b.store.GetUser(ctx, caller.UserID)
	if err != nil {
		return "", nil, fmt.Errorf("load user %s: %w", caller.UserID, err)
	}
	if user == nil {
		return "", nil, nil
	}
	return user.OrgID, user, nil
}

// displayName prefers the display name, then the email, then "User".
func (b *base) displayName(ctx context.Context, caller Caller, user *User) string {
	if name := strings.TrimSpace(caller.Name); name != "" {
		return name
	}
	if user == nil {
		stored, err := b.store.GetUser(ctx, caller.UserID)
		if err != nil {
			b.logger.Printf("load user %s for display name: %v", caller.UserID, err)
		}
		user = stored
	}
	if user != nil && strings.TrimSpace(user.Name) != "" {
		return user.Name
	}
	if email := strings.TrimSpace(caller.Email); email != "" {
		return email
	}
	if user != nil && strings.TrimSpace(user.Email) != "" {
		return user.Email
	}
	return "User"
}

func (b *base) loadBrief(ctx context.Context, briefID string) (*Brief, error) {
	brief, err := b.store.GetBrief(ctx, briefID)
	if err != nil {
		return nil, fmt.Errorf("load brief %s: %w", briefID, err)
	}
	if brief == nil {
		return nil, ErrBriefNotFound
	}
	return brief, nil
}

func briefContext(brief *Brief) string {
	if brief == nil {
		return ""
	}
	if brief.Description == "" {
		return brief.Name
	}
	return brief.Name + ": " + brief.Description
}
