// Package account handles authentication, the cached user profile and
// familiarity scores.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/aretw0/introspection"

	"github.com/noteq/noteq/pkg/api"
	"github.com/noteq/noteq/pkg/cache"
	"github.com/noteq/noteq/pkg/core"
)

// UnnamedTopic labels familiarity entries whose topic has no name.
const UnnamedTopic = "Untitled topic"

// Service wraps the account endpoints and the local session.
type Service struct {
	client      *api.Client
	local       core.Store
	session     core.Store
	logger      *slog.Logger
	profile     *cache.TTL[core.UserProfile]
	familiarity *cache.TTL[[]core.Familiarity]
}

// Option configures a Service.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	now      func() time.Time
	observer func(name string, hit bool)
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithClock replaces time.Now for the caches.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithCacheObserver is called on every cache lookup.
func WithCacheObserver(fn func(name string, hit bool)) Option {
	return func(o *options) {
		o.observer = fn
	}
}

// New creates a Service. local keeps the token and caches across runs,
// session holds the per-attempt quiz state.
func New(client *api.Client, local, session core.Store, opts ...Option) *Service {
	o := options{logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	cacheOpts := func(prefix string) []cache.Option {
		opts := []cache.Option{
			cache.WithClock(o.now),
			cache.WithLogger(o.logger),
			cache.WithStore(local, prefix),
		}
		if o.observer != nil {
			opts = append(opts, cache.WithObserver(o.observer))
		}
		return opts
	}
	return &Service{
		client:      client,
		local:       local,
		session:     session,
		logger:      o.logger,
		profile:     cache.New[core.UserProfile]("profile", cache.ProfileTTL, cacheOpts(core.KeyProfileCache+":")...),
		familiarity: cache.New[[]core.Familiarity]("familiarity", cache.ShortTTL, cacheOpts(core.KeyFamiliarityCache+":")...),
	}
}

// Login authenticates and stores the session locally.
func (s *Service) Login(ctx context.Context, email, password string) (core.Session, error) {
	resp, err := s.client.Login(ctx, api.LoginRequest{Email: email, Password: password})
	if err != nil {
		return core.Session{}, err
	}
	sess := core.Session{
		Token:  resp.Token,
		UserID: strconv.FormatInt(resp.UserID, 10),
		IsPaid: resp.IsPaid,
	}
	if err := core.SaveSession(ctx, s.local, sess); err != nil {
		return core.Session{}, fmt.Errorf("failed to save session: %w", err)
	}
	s.logger.Info("logged in", "user_id", sess.UserID)
	return sess, nil
}

// Register creates a new account. It does not log in.
func (s *Service) Register(ctx context.Context, username, email, password string) error {
	return s.client.Register(ctx, api.RegisterRequest{Username: username, Email: email, Password: password})
}

// ForgotPassword asks the backend to e-mail a reset link.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	if email == "" {
		return core.Invalid("email", "is required")
	}
	return s.client.ForgotPassword(ctx, email)
}

// ValidatePasswordChange applies the local password rules.
func ValidatePasswordChange(oldPassword, newPassword string) error {
	if oldPassword == "" || newPassword == "" {
		return core.Invalid("", "both the old and the new password are required")
	}
	if len(newPassword) < 6 {
		return core.Invalid("new_password", "must be at least 6 characters")
	}
	if oldPassword == newPassword {
		return core.Invalid("new_password", "must differ from the old password")
	}
	return nil
}

// ChangePassword changes the password of the logged in user.
func (s *Service) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	if err := ValidatePasswordChange(oldPassword, newPassword); err != nil {
		return err
	}
	return s.client.ResetPassword(ctx, api.ResetPasswordRequest{OldPassword: oldPassword, NewPassword: newPassword})
}

// ResetFromEmail completes a reset started with ForgotPassword.
func (s *Service) ResetFromEmail(ctx context.Context, uid, token, newPassword string) error {
	return s.client.ResetPasswordFromEmail(ctx, api.ResetFromEmailRequest{UID: uid, Token: token, NewPassword: newPassword})
}

// Logout forgets the session and every cached or in-progress value.
func (s *Service) Logout(ctx context.Context) error {
	err := errors.Join(
		s.profile.Clear(ctx),
		s.familiarity.Clear(ctx),
		s.local.Clear(ctx),
		s.session.Clear(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to clear local state: %w", err)
	}
	s.logger.Info("logged out")
	return nil
}

// Session returns the stored session or core.ErrUnauthenticated.
func (s *Service) Session(ctx context.Context) (core.Session, error) {
	return core.CurrentSession(ctx, s.local)
}

// Profile returns the user profile, cached for five minutes across runs.
func (s *Service) Profile(ctx context.Context) (core.UserProfile, error) {
	sess, err := s.Session(ctx)
	if err != nil {
		return core.UserProfile{}, err
	}
	return s.profile.Fetch(ctx, sess.UserID, func(ctx context.Context) (core.UserProfile, error) {
		u, err := s.client.User(ctx, sess.UserID)
		if err != nil {
			return core.UserProfile{}, err
		}
		return u.Profile(), nil
	})
}

// Familiarity returns the per topic familiarity, cached for 30 seconds.
// When the refresh fails a previously fetched list is returned instead.
func (s *Service) Familiarity(ctx context.Context) ([]core.Familiarity, error) {
	sess, err := s.Session(ctx)
	if err != nil {
		return nil, err
	}
	list, err := s.familiarity.Fetch(ctx, sess.UserID, s.fetchFamiliarity)
	if err == nil {
		return list, nil
	}
	if stale, at, ok := s.familiarity.Peek(ctx, sess.UserID); ok {
		s.logger.Warn("serving stale familiarity", "stored_at", at, "error", err)
		return stale, nil
	}
	return nil, err
}

// RefreshFamiliarity fetches the familiarity even when the cached copy is fresh.
// A failed refresh returns the error and keeps the cached copy for later calls.
func (s *Service) RefreshFamiliarity(ctx context.Context) ([]core.Familiarity, error) {
	sess, err := s.Session(ctx)
	if err != nil {
		return nil, err
	}
	return s.familiarity.Refresh(ctx, sess.UserID, s.fetchFamiliarity)
}

func (s *Service) fetchFamiliarity(ctx context.Context) ([]core.Familiarity, error) {
	records, err := s.client.Familiarity(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]core.Familiarity, 0, len(records))
	for _, r := range records {
		name := r.QuizTopic.Name
		if name == "" {
			name = UnnamedTopic
		}
		out = append(out, core.Familiarity{Name: name, Familiarity: r.Familiarity, QuizID: r.QuizTopic.ID})
	}
	return out, nil
}

// PaymentStatus polls a checkout. A completed payment marks the session paid.
// An empty tradeNo falls back to the last stored merchant trade number.
func (s *Service) PaymentStatus(ctx context.Context, tradeNo string) (string, error) {
	if tradeNo == "" {
		stored, ok, err := s.local.Get(ctx, core.KeyMerchantTradeNo)
		if err != nil {
			return "", err
		}
		if !ok || stored == "" {
			return "", core.Invalid("merchant_trade_no", "is required")
		}
		tradeNo = stored
	}
	resp, err := s.client.PaymentStatus(ctx, tradeNo)
	if err != nil {
		return "", err
	}
	if resp.Status == "completed" {
		if err := s.local.Set(ctx, core.KeyIsPaid, "true"); err != nil {
			return resp.Status, err
		}
		if err := s.local.Delete(ctx, core.KeyMerchantTradeNo); err != nil {
			return resp.Status, err
		}
	}
	return resp.Status, nil
}

// Caches exposes the caches for introspection.
func (s *Service) Caches() []introspection.Introspectable {
	return []introspection.Introspectable{s.profile, s.familiarity}
}
