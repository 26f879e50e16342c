package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/model"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/store"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("an account with this email already exists")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

const resetTokenTTL = time.Hour

// Mailer delivers password reset links.
type Mailer interface {
	SendPasswordReset(toEmail, token string) error
}

type Config struct {
	Secret         []byte
	AccessTokenTTL time.Duration
	SessionTTL     time.Duration
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
}

// Provider owns accounts and sessions and notifies subscribers of every
// auth state change.
type Provider struct {
	users    *store.UserStore
	profiles *store.ProfileStore
	sessions *store.SessionStore
	resets   *store.PasswordResetStore
	mailer   Mailer
	cfg      Config
	validate *validator.Validate
	logger   *slog.Logger

	mu        sync.Mutex
	nextSubID int
	listeners map[int]func(model.AuthEvent)
}

func NewProvider(
	users *store.UserStore,
	profiles *store.ProfileStore,
	sessions *store.SessionStore,
	resets *store.PasswordResetStore,
	mailer Mailer,
	cfg Config,
	logger *slog.Logger,
) *Provider {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.AccessTokenTTL == 0 {
		cfg.AccessTokenTTL = 15 * time.Minute
	}
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = 30 * 24 * time.Hour
	}
	return &Provider{
		users:     users,
		profiles:  profiles,
		sessions:  sessions,
		resets:    resets,
		mailer:    mailer,
		cfg:       cfg,
		validate:  validator.New(),
		logger:    logger,
		listeners: make(map[int]func(model.AuthEvent)),
	}
}

// OnAuthStateChange registers fn for every auth event and returns a func
// that removes it.
func (p *Provider) OnAuthStateChange(fn func(model.AuthEvent)) (unsubscribe func()) {
	p.mu.Lock()
	id := p.nextSubID
	p.nextSubID++
	p.listeners[id] = fn
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.listeners, id)
			p.mu.Unlock()
		})
	}
}

func (p *Provider) emit(ev model.AuthEvent) {
	p.mu.Lock()
	fns := make([]func(model.AuthEvent), 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

type credentials struct {
	Email    string `validate:"required,email,max=254"`
	Password string `validate:"required,min=8,max=72"`
}

// SignUpResult reports the new account and session. ProfileErr is set when
// the account was created but its profile row was not. SessionErr is set,
// and Session is nil, when the account exists but no session could be
// opened; the caller should sign in.
type SignUpResult struct {
	User       *model.User
	Session    *model.Session
	Profile    *model.Profile
	ProfileErr error
	SessionErr error
}

// SignUp creates an account, its profile and a session. Once the account row
// exists the call succeeds; later failures are reported in the result.
func (p *Provider) SignUp(email, password, username string) (*SignUpResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := p.validate.Struct(credentials{Email: email, Password: password}); err != nil {
		return nil, err
	}

	existing, err := p.users.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user, err := p.users.Create(email, string(hash))
	if err != nil {
		return nil, err
	}

	res := &SignUpResult{User: user}
	if username == "" {
		username = strings.SplitN(email, "@", 2)[0]
	}
	res.Profile, res.ProfileErr = p.profiles.Create(user.ID, username, username)
	if res.ProfileErr != nil {
		p.logger.Warn("profile creation failed", "user_id", user.ID, "error", res.ProfileErr)
	}

	res.Session, res.SessionErr = p.openSession(user)
	if res.SessionErr != nil {
		p.logger.Warn("session creation after sign up failed", "user_id", user.ID, "error", res.SessionErr)
		res.Session = nil
		return res, nil
	}
	p.emit(model.AuthEvent{Type: model.AuthEventSignedIn, UserID: user.ID, SessionID: res.Session.ID, Session: res.Session})
	return res, nil
}

func (p *Provider) SignIn(email, password string) (*model.Session, error) {
	user, hash, err := p.users.PasswordHash(email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	sess, err := p.openSession(user)
	if err != nil {
		return nil, err
	}
	p.logger.Info("signed in", "user_id", user.ID)
	p.emit(model.AuthEvent{Type: model.AuthEventSignedIn, UserID: user.ID, SessionID: sess.ID, Session: sess})
	return sess, nil
}

func (p *Provider) openSession(user *model.User) (*model.Session, error) {
	refresh, err := generateToken()
	if err != nil {
		return nil, err
	}
	sess, err := p.sessions.Create(user.ID, hashToken(refresh), time.Now().Add(p.cfg.SessionTTL))
	if err != nil {
		return nil, err
	}
	return p.issue(sess, user, refresh)
}

func (p *Provider) issue(sess *model.Session, user *model.User, refresh string) (*model.Session, error) {
	access, expires, err := signAccessToken(p.cfg.Secret, user.ID, user.Email, sess.ID, p.cfg.AccessTokenTTL)
	if err != nil {
		return nil, err
	}
	out := *sess
	out.AccessToken = access
	out.RefreshToken = refresh
	out.ExpiresAt = expires
	out.User = user
	return &out, nil
}

// Refresh exchanges a refresh token for a new access token and a rotated
// refresh token.
func (p *Provider) Refresh(refreshToken string) (*model.Session, error) {
	oldHash := hashToken(refreshToken)
	sess, err := p.sessions.GetByRefreshHash(oldHash)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrInvalidToken
	}
	user, err := p.users.GetByID(sess.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidToken
	}

	next, err := generateToken()
	if err != nil {
		return nil, err
	}
	ok, err := p.sessions.Rotate(sess.ID, oldHash, hashToken(next), time.Now().Add(p.cfg.SessionTTL))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidToken
	}

	out, err := p.issue(sess, user, next)
	if err != nil {
		return nil, err
	}
	p.emit(model.AuthEvent{Type: model.AuthEventTokenRefreshed, UserID: user.ID, SessionID: out.ID, Session: out})
	return out, nil
}

// Authenticate validates an access token and that its session is still open.
func (p *Provider) Authenticate(accessToken string) (AuthContext, error) {
	claims, err := parseAccessToken(p.cfg.Secret, accessToken)
	if err != nil {
		return AuthContext{}, ErrInvalidToken
	}
	sess, err := p.sessions.GetByID(claims.SessionID)
	if err != nil {
		return AuthContext{}, err
	}
	if sess == nil || sess.UserID != claims.Subject {
		return AuthContext{}, ErrInvalidToken
	}
	return AuthContext{UserID: claims.Subject, Email: claims.Email, SessionID: claims.SessionID}, nil
}

// Session returns the caller's session and user without tokens.
func (p *Provider) Session(ac AuthContext) (*model.Session, error) {
	sess, err := p.sessions.GetByID(ac.SessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrInvalidToken
	}
	user, err := p.users.GetByID(sess.UserID)
	if err != nil {
		return nil, err
	}
	sess.User = user
	return sess, nil
}

func (p *Provider) SignOut(ac AuthContext) error {
	if err := p.sessions.Delete(ac.SessionID); err != nil {
		return err
	}
	p.emit(model.AuthEvent{Type: model.AuthEventSignedOut, UserID: ac.UserID, SessionID: ac.SessionID})
	return nil
}

// ResetPasswordForEmail mails a single-use reset token. Unknown addresses
// succeed without sending anything.
func (p *Provider) ResetPasswordForEmail(email string) error {
	user, err := p.users.GetByEmail(email)
	if err != nil {
		return err
	}
	if user == nil {
		p.logger.Info("password reset for unknown email")
		return nil
	}

	token, err := generateToken()
	if err != nil {
		return err
	}
	if _, err := p.resets.Create(user.ID, hashToken(token), time.Now().Add(resetTokenTTL)); err != nil {
		return err
	}
	if err := p.mailer.SendPasswordReset(user.Email, token); err != nil {
		return fmt.Errorf("send reset email: %w", err)
	}
	p.emit(model.AuthEvent{Type: model.AuthEventPasswordRecovery, UserID: user.ID})
	return nil
}

// UpdatePassword consumes a reset token, sets the new password and signs the
// user out everywhere.
func (p *Provider) UpdatePassword(token, password string) error {
	if err := p.validate.Var(password, "required,min=8,max=72"); err != nil {
		return err
	}
	reset, err := p.resets.GetValid(hashToken(token))
	if err != nil {
		return err
	}
	if reset == nil {
		return ErrInvalidToken
	}
	ok, err := p.resets.MarkUsed(reset.ID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidToken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := p.users.UpdatePassword(reset.UserID, string(hash)); err != nil {
		return err
	}
	if err := p.sessions.DeleteByUser(reset.UserID); err != nil {
		return err
	}

	p.emit(model.AuthEvent{Type: model.AuthEventUserUpdated, UserID: reset.UserID})
	p.emit(model.AuthEvent{Type: model.AuthEventSignedOut, UserID: reset.UserID})
	return nil
}

// Cleanup removes expired sessions and reset tokens.
func (p *Provider) Cleanup() {
	if n, err := p.sessions.DeleteExpired(); err != nil {
		p.logger.Error("delete expired sessions", "error", err)
	} else if n > 0 {
		p.logger.Info("deleted expired sessions", "count", n)
	}
	if n, err := p.resets.DeleteExpired(); err != nil {
		p.logger.Error("delete expired password resets", "error", err)
	} else if n > 0 {
		p.logger.Info("deleted expired password resets", "count", n)
	}
}
