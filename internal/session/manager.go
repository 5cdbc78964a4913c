package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Illuminatus66/byqr/internal/model"
	"github.com/Illuminatus66/byqr/internal/persist"
	"github.com/Illuminatus66/byqr/internal/remote"
	"github.com/Illuminatus66/byqr/pkg/kit"
)

type AuthAPI interface {
	Login(ctx context.Context, cr model.Credentials) (model.AuthResponse, error)
	Signup(ctx context.Context, reg model.Registration) (model.AuthResponse, error)
	UpdateUser(ctx context.Context, userID string, patch model.ProfilePatch) (model.UpdateUserResponse, error)
}

// Partition is a session-owned store emptied by the cascading clear.
type Partition interface {
	Clear()
}

// sessionKeys are wiped together with the session itself.
var sessionKeys = []string{
	persist.KeyProfile,
	persist.KeyTokenTimestamp,
	persist.KeyCart,
	persist.KeyWishlist,
	persist.KeyOrders,
}

type Manager struct {
	api      AuthAPI
	gw       *persist.Gateway
	log      *zap.Logger
	validate *validator.Validate
	now      func() time.Time
	ttl      time.Duration

	mu      sync.Mutex
	state   State
	lastEnd State
	sess    *Session
	owned   []Partition
	busy    bool
	err     error
	epoch   uint64
}

type Option func(*Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

func NewManager(api AuthAPI, gw *persist.Gateway, log *zap.Logger, opts ...Option) *Manager {
	m := &Manager{
		api:      api,
		gw:       gw,
		log:      kit.OrNop(log),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
		ttl:      DefaultTTL,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Own registers the partitions cleared whenever the session ends.
func (m *Manager) Own(parts ...Partition) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.owned = append(m.owned, parts...)
}

// Token is the bearer token source for the API client.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess == nil {
		return ""
	}
	return m.sess.Token
}

func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := Status{
		State:   m.state,
		Loading: m.busy,
		Err:     m.err,
		LastEnd: m.lastEnd,
	}
	if m.sess != nil {
		s := m.sess.clone()
		st.Session = &s
	}
	return st
}

func (m *Manager) Login(ctx context.Context, cr model.Credentials) (Session, error) {
	if err := m.validate.Struct(cr); err != nil {
		return Session{}, m.fail(fmt.Errorf("%w: %v", ErrValidation, err))
	}
	return m.authenticate(ctx, func(ctx context.Context) (model.AuthResponse, error) {
		return m.api.Login(ctx, cr)
	})
}

func (m *Manager) Signup(ctx context.Context, reg model.Registration) (Session, error) {
	if err := m.validate.Struct(reg); err != nil {
		return Session{}, m.fail(fmt.Errorf("%w: %v", ErrValidation, err))
	}
	return m.authenticate(ctx, func(ctx context.Context) (model.AuthResponse, error) {
		return m.api.Signup(ctx, reg)
	})
}

func (m *Manager) authenticate(ctx context.Context, call func(context.Context) (model.AuthResponse, error)) (Session, error) {
	m.mu.Lock()
	m.expireLocked(ctx, m.now())
	switch {
	case m.busy:
		m.mu.Unlock()
		return Session{}, ErrBusy
	case m.sess != nil:
		m.mu.Unlock()
		return Session{}, ErrAlreadySignedIn
	}
	m.busy = true
	m.err = nil
	m.state = Authenticating
	epoch := m.epoch
	m.mu.Unlock()

	resp, err := call(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	// A cascade during the call already freed the slot; it may belong to a newer call now.
	if epoch != m.epoch {
		return Session{}, ErrSessionEnded
	}
	m.busy = false

	if err == nil && (resp.Token == "" || resp.Result.ID == "") {
		err = fmt.Errorf("%w: empty token or profile in auth response", remote.ErrBadStatus)
	}
	if err != nil {
		m.state = Anonymous
		m.err = authError(err)
		m.log.Warn("authentication failed", zap.Error(err))
		return Session{}, m.err
	}

	profile := resp.Result
	s := &Session{
		Token:    resp.Token,
		Profile:  &profile,
		IssuedAt: m.now(),
		CartNo:   resp.Cart.CartNo,
	}
	m.sess = s
	m.state = Authenticated
	m.lastEnd = Anonymous
	m.epoch++

	m.persistLocked(ctx, s, true)
	m.log.Info("signed in", zap.String("user_id", profile.ID))
	return s.clone(), nil
}

// UpdateProfile merges patch into the profile. An email change rotates the token and restarts the TTL.
func (m *Manager) UpdateProfile(ctx context.Context, patch model.ProfilePatch) (model.Profile, error) {
	if err := m.validate.Struct(patch); err != nil {
		return model.Profile{}, m.fail(fmt.Errorf("%w: %v", ErrValidation, err))
	}

	sess, err := m.Guard(ctx)
	if err != nil {
		return model.Profile{}, err
	}

	m.mu.Lock()
	if m.busy {
		m.mu.Unlock()
		return model.Profile{}, ErrBusy
	}
	m.busy = true
	m.err = nil
	epoch := m.epoch
	m.mu.Unlock()

	resp, err := m.api.UpdateUser(ctx, sess.UserID(), patch)

	m.mu.Lock()
	defer m.mu.Unlock()
	if epoch != m.epoch {
		return model.Profile{}, ErrSessionEnded
	}
	m.busy = false

	if err != nil {
		m.err = authError(err)
		m.log.Warn("profile update failed", zap.Error(err))
		return model.Profile{}, m.err
	}
	if m.sess == nil {
		return model.Profile{}, ErrSessionEnded
	}

	merged, emailChanged := patch.Apply(*m.sess.Profile)
	overlay(&merged, resp.Result)
	m.sess.Profile = &merged

	// The server's token field decides rotation; a mismatch with the patch is only logged.
	rotated := resp.Token != nil && *resp.Token != ""
	if rotated != emailChanged {
		m.log.Warn("token rotation does not match email change",
			zap.Bool("email_changed", emailChanged), zap.Bool("rotated", rotated))
	}
	if rotated {
		m.sess.Token = *resp.Token
		m.sess.IssuedAt = m.now()
	}
	m.persistLocked(ctx, m.sess, rotated)
	return merged, nil
}

func overlay(p *model.Profile, from model.Profile) {
	if from.Name != "" {
		p.Name = from.Name
	}
	if from.Email != "" {
		p.Email = from.Email
	}
	if from.Phone != "" {
		p.Phone = from.Phone
	}
	if from.Addresses != nil {
		p.Addresses = append([]string(nil), from.Addresses...)
	}
}

func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess == nil && m.state != Authenticating {
		return
	}
	m.cascadeLocked(ctx, LoggedOut)
}

// Restore reloads a persisted session; one that has outlived the TTL, or lacks its timestamp, is cascaded away.
func (m *Manager) Restore(ctx context.Context) error {
	var rec record
	ok, err := m.gw.Load(ctx, persist.KeyProfile, &rec)
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	issuedAt, hasTS, err := m.gw.LoadTimestamp(ctx, persist.KeyTokenTimestamp)
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !ok || rec.Token == "" || rec.User.ID == "" {
		if hasTS {
			if err := m.gw.Remove(ctx, persist.KeyTokenTimestamp); err != nil {
				m.log.Warn("remove orphan token timestamp failed", zap.Error(err))
			}
		}
		return nil
	}

	user := rec.User
	m.sess = &Session{Token: rec.Token, Profile: &user, IssuedAt: issuedAt, CartNo: rec.CartNo}
	m.state = Authenticated
	m.epoch++

	if !hasTS {
		m.cascadeLocked(ctx, Expired)
		return nil
	}
	m.expireLocked(ctx, m.now())
	return nil
}

func (m *Manager) cascadeLocked(ctx context.Context, reason State) {
	m.sess = nil
	m.state = Anonymous
	m.lastEnd = reason
	m.busy = false
	m.epoch++

	for _, p := range m.owned {
		p.Clear()
	}

	if err := m.gw.Remove(context.WithoutCancel(ctx), sessionKeys...); err != nil {
		m.log.Warn("clear persisted session failed", zap.Error(err))
	}
	m.log.Info("session cleared", zap.Stringer("reason", reason))
}

func (m *Manager) persistLocked(ctx context.Context, s *Session, stamp bool) {
	rec := record{Token: s.Token, User: *s.Profile, CartNo: s.CartNo}
	if err := m.gw.Save(ctx, persist.KeyProfile, rec); err != nil {
		m.log.Warn("persist profile failed", zap.Error(err))
	}
	if !stamp {
		return
	}
	if err := m.gw.SaveTimestamp(ctx, persist.KeyTokenTimestamp, s.IssuedAt); err != nil {
		m.log.Warn("persist token timestamp failed", zap.Error(err))
	}
}

func (m *Manager) fail(err error) error {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
	return err
}

func authError(err error) error {
	switch {
	case errors.Is(err, remote.ErrUnauthorized), errors.Is(err, remote.ErrNotFound):
		return fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	case errors.Is(err, remote.ErrRejected):
		return fmt.Errorf("%w: %v", ErrValidation, err)
	default:
		return err
	}
}
