// Package authstate tracks whether the app user is signed in and drives the
// navigation and notifications that follow auth actions.
package authstate

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/krishnaganguri/choreo-sweep-sub000/internal/client"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/model"
)

type State string

const (
	Loading         State = "loading"
	Authenticated   State = "authenticated"
	Unauthenticated State = "unauthenticated"
)

// Routes the provider navigates to.
const (
	HomeRoute  = "/"
	LoginRoute = "/login"
)

// Backend is the auth surface of the API client.
type Backend interface {
	GetSession(ctx context.Context) (*model.Session, error)
	SignIn(ctx context.Context, email, password string) (*model.Session, error)
	SignUp(ctx context.Context, email, password, username string) (*client.SignUpResult, error)
	SignOut(ctx context.Context) error
	ResetPasswordForEmail(ctx context.Context, email string) error
	OnAuthStateChange(fn func(model.AuthEvent)) (unsubscribe func())
}

type Navigator interface {
	Navigate(path string)
}

// Notification is a toast shown to the user. Destructive marks failures.
type Notification struct {
	Title       string
	Message     string
	Destructive bool
}

type Notifier interface {
	Notify(n Notification)
}

// Snapshot is the observable state at one point in time.
type Snapshot struct {
	State   State
	Session *model.Session
}

// User returns the signed-in user, or nil.
func (s Snapshot) User() *model.User {
	if s.Session == nil {
		return nil
	}
	return s.Session.User
}

// Provider is safe for concurrent use. gen changes on every Mount and
// Unmount so that results of calls that complete afterwards are discarded;
// events counts applied pushed events.
type Provider struct {
	backend  Backend
	nav      Navigator
	notifier Notifier
	logger   *slog.Logger

	mu      sync.Mutex
	state   State
	session *model.Session
	mounted bool
	gen     uint64
	events  uint64
	unsub   func()
	nextObs int
	obs     map[int]func(Snapshot)
}

func New(backend Backend, nav Navigator, notifier Notifier, logger *slog.Logger) *Provider {
	return &Provider{
		backend:  backend,
		nav:      nav,
		notifier: notifier,
		logger:   logger.With("component", "authstate"),
		state:    Loading,
		obs:      make(map[int]func(Snapshot)),
	}
}

func (p *Provider) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Snapshot{State: p.state, Session: p.session}
}

func (p *Provider) State() State {
	return p.Snapshot().State
}

// OnChange registers fn for every state transition and returns a func that
// removes it. fn is called without the provider's lock held.
func (p *Provider) OnChange(fn func(Snapshot)) (remove func()) {
	p.mu.Lock()
	id := p.nextObs
	p.nextObs++
	p.obs[id] = fn
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		delete(p.obs, id)
		p.mu.Unlock()
	}
}

// Mount subscribes to auth events and resolves the initial session. The
// state is Loading until the session check returns. An event that arrives
// while the check is in flight takes precedence over its result.
func (p *Provider) Mount(ctx context.Context) error {
	p.mu.Lock()
	if p.mounted {
		p.mu.Unlock()
		return nil
	}
	p.mounted = true
	p.gen++
	gen, seen := p.gen, p.events
	p.state, p.session = Loading, nil
	p.mu.Unlock()

	unsub := p.backend.OnAuthStateChange(p.apply)
	p.mu.Lock()
	if p.gen != gen {
		p.mu.Unlock()
		unsub()
		return nil
	}
	p.unsub = unsub
	p.mu.Unlock()
	p.changed()

	sess, err := p.backend.GetSession(ctx)
	if err != nil {
		p.logger.Error("get session", "error", err)
		sess = nil
	}

	p.mu.Lock()
	if p.gen != gen || p.events != seen {
		p.mu.Unlock()
		return err
	}
	p.set(sess)
	p.mu.Unlock()
	p.changed()
	return err
}

// Unmount drops the event subscription. Pending results are ignored.
func (p *Provider) Unmount() {
	p.mu.Lock()
	if !p.mounted {
		p.mu.Unlock()
		return
	}
	p.mounted = false
	p.gen++
	unsub := p.unsub
	p.unsub = nil
	p.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

// apply handles one auth event. The last event received wins.
func (p *Provider) apply(ev model.AuthEvent) {
	p.mu.Lock()
	if !p.mounted {
		p.mu.Unlock()
		return
	}
	switch ev.Type {
	case model.AuthEventSignedIn, model.AuthEventTokenRefreshed, model.AuthEventUserUpdated:
		if ev.Session == nil {
			p.mu.Unlock()
			return
		}
		p.set(ev.Session)
	case model.AuthEventSignedOut:
		if p.session != nil && ev.SessionID != "" && ev.SessionID != p.session.ID {
			p.mu.Unlock()
			return
		}
		p.set(nil)
	default:
		p.mu.Unlock()
		return
	}
	p.events++
	p.mu.Unlock()
	p.changed()
}

// set must be called with mu held.
func (p *Provider) set(sess *model.Session) {
	p.session = sess
	if sess != nil {
		p.state = Authenticated
	} else {
		p.state = Unauthenticated
	}
}

func (p *Provider) changed() {
	p.mu.Lock()
	snap := Snapshot{State: p.state, Session: p.session}
	fns := make([]func(Snapshot), 0, len(p.obs))
	for _, fn := range p.obs {
		fns = append(fns, fn)
	}
	p.mu.Unlock()
	for _, fn := range fns {
		fn(snap)
	}
}

// commit applies the result of a local call if the provider is still
// mounted in the same generation. It reports whether it did.
func (p *Provider) commit(gen uint64, sess *model.Session) bool {
	p.mu.Lock()
	if !p.mounted || p.gen != gen {
		p.mu.Unlock()
		return false
	}
	p.set(sess)
	p.mu.Unlock()
	p.changed()
	return true
}

func (p *Provider) generation() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gen
}

// SignIn signs in and navigates home. On failure the state is unchanged and
// the error is shown.
func (p *Provider) SignIn(ctx context.Context, email, password string) error {
	gen := p.generation()
	sess, err := p.backend.SignIn(ctx, email, password)
	if err != nil {
		p.notifyError("Sign in failed", err)
		return err
	}
	if p.commit(gen, sess) {
		p.nav.Navigate(HomeRoute)
	}
	return nil
}

// SignUp creates the account and signs in. A profile that could not be
// saved is reported on its own; the account stays.
func (p *Provider) SignUp(ctx context.Context, email, password, username string) error {
	gen := p.generation()
	res, err := p.backend.SignUp(ctx, email, password, username)
	if err != nil {
		p.notifyError("Sign up failed", err)
		return err
	}
	if res.ProfileError != "" {
		p.logger.Warn("profile not created", "user_id", res.User.ID, "error", res.ProfileError)
		p.notifier.Notify(Notification{Title: "Profile not saved", Message: res.ProfileError, Destructive: true})
	}
	p.notifier.Notify(Notification{Title: "Account created", Message: "Welcome!"})
	if res.Session == nil {
		p.notifier.Notify(Notification{Title: "Please sign in", Message: res.SessionError})
		if p.commit(gen, nil) {
			p.nav.Navigate(LoginRoute)
		}
		return nil
	}
	if p.commit(gen, res.Session) {
		p.nav.Navigate(HomeRoute)
	}
	return nil
}

// SignOut ends the session and returns to the login route. The local state
// is cleared even when the server call fails.
func (p *Provider) SignOut(ctx context.Context) error {
	gen := p.generation()
	err := p.backend.SignOut(ctx)
	if err != nil {
		p.logger.Warn("sign out", "error", err)
	}
	if p.commit(gen, nil) {
		p.nav.Navigate(LoginRoute)
	}
	return err
}

// ResetPassword requests a reset email. It never changes the auth state.
func (p *Provider) ResetPassword(ctx context.Context, email string) error {
	if err := p.backend.ResetPasswordForEmail(ctx, email); err != nil {
		p.notifyError("Reset failed", err)
		return err
	}
	p.notifier.Notify(Notification{Title: "Check your email", Message: "We sent a password reset link to " + email + "."})
	return nil
}

func (p *Provider) notifyError(title string, err error) {
	msg := err.Error()
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		msg = apiErr.Message
	}
	p.notifier.Notify(Notification{Title: title, Message: msg, Destructive: true})
}
