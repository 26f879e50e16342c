// Package familystate holds the user's families, the selected family and
// its members.
package familystate

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/krishnaganguri/choreo-sweep-sub000/internal/model"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/websocket"
)

var ErrUnknownFamily = errors.New("not a member of that family")

// Backend is the family surface of the API client. SetFamily selects the
// family later requests act in.
type Backend interface {
	ListFamilies(ctx context.Context) ([]model.Family, error)
	ListMembers(ctx context.Context, familyID string) ([]model.FamilyMember, error)
	SetFamily(familyID string)
	Session() *model.Session
}

// Provider is safe for concurrent use. Each selection bumps gen; a member
// list fetched for an older selection is dropped.
type Provider struct {
	backend Backend
	logger  *slog.Logger

	mu       sync.RWMutex
	families []model.Family
	current  *model.Family
	members  []model.FamilyMember
	gen      uint64
}

func New(backend Backend, logger *slog.Logger) *Provider {
	return &Provider{backend: backend, logger: logger.With("component", "familystate")}
}

// Load fetches the user's families. The selection is kept when it is still
// among them and otherwise defaults to the first family. A failed read
// leaves an empty list and is returned.
func (p *Provider) Load(ctx context.Context) error {
	families, err := p.backend.ListFamilies(ctx)
	if err != nil {
		p.logger.Error("list families", "error", err)
		families = nil
	}

	p.mu.Lock()
	p.families = families
	var next *model.Family
	if p.current != nil {
		if i := slices.IndexFunc(families, func(f model.Family) bool { return f.ID == p.current.ID }); i >= 0 {
			next = &families[i]
		}
	}
	if next == nil && len(families) > 0 {
		next = &families[0]
	}
	p.mu.Unlock()

	if next == nil {
		p.switchTo(nil)
		return err
	}
	if selErr := p.Select(ctx, next.ID); selErr != nil && err == nil {
		err = selErr
	}
	return err
}

// Select switches the current family and re-fetches its members.
func (p *Provider) Select(ctx context.Context, familyID string) error {
	p.mu.RLock()
	i := slices.IndexFunc(p.families, func(f model.Family) bool { return f.ID == familyID })
	var fam *model.Family
	if i >= 0 {
		f := p.families[i]
		fam = &f
	}
	p.mu.RUnlock()
	if fam == nil {
		return ErrUnknownFamily
	}

	gen := p.switchTo(fam)
	return p.fetchMembers(ctx, gen, familyID)
}

// ReloadMembers re-fetches the members of the current family.
func (p *Provider) ReloadMembers(ctx context.Context) error {
	p.mu.RLock()
	cur, gen := p.current, p.gen
	p.mu.RUnlock()
	if cur == nil {
		return nil
	}
	return p.fetchMembers(ctx, gen, cur.ID)
}

func (p *Provider) switchTo(fam *model.Family) uint64 {
	p.mu.Lock()
	p.gen++
	p.current = fam
	p.members = nil
	gen := p.gen
	p.mu.Unlock()

	id := ""
	if fam != nil {
		id = fam.ID
	}
	p.backend.SetFamily(id)
	return gen
}

func (p *Provider) fetchMembers(ctx context.Context, gen uint64, familyID string) error {
	members, err := p.backend.ListMembers(ctx, familyID)
	if err != nil {
		p.logger.Error("list family members", "family_id", familyID, "error", err)
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gen != gen {
		p.logger.Debug("dropping stale member list", "family_id", familyID)
		return nil
	}
	p.members = members
	return nil
}

// Apply reacts to a realtime message. Membership changes reload the
// families and members.
func (p *Provider) Apply(ctx context.Context, msg websocket.Message) error {
	if msg.Type != websocket.TypeRowChange || msg.Entity != "family_members" {
		return nil
	}
	return p.Load(ctx)
}

// Clear forgets everything, e.g. after sign-out.
func (p *Provider) Clear() {
	p.mu.Lock()
	p.families = nil
	p.mu.Unlock()
	p.switchTo(nil)
}

func (p *Provider) Families() []model.Family {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.families)
}

// Current returns the selected family, or nil.
func (p *Provider) Current() *model.Family {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.current == nil {
		return nil
	}
	f := *p.current
	return &f
}

func (p *Provider) Members() []model.FamilyMember {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.members)
}

// IsAdmin reports whether the signed-in user is a verified admin of
// familyID according to the cached member list. Only the current family's
// members are cached; any other family reports false.
func (p *Provider) IsAdmin(familyID string) bool {
	sess := p.backend.Session()
	if sess == nil {
		return false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.current == nil || p.current.ID != familyID {
		return false
	}
	return slices.ContainsFunc(p.members, func(m model.FamilyMember) bool {
		return m.UserID == sess.UserID && m.Role == model.RoleAdmin && m.IsVerified
	})
}
