package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/krishnaganguri/choreo-sweep-sub000/internal/model"
)

func (c *Client) ListFamilies(ctx context.Context) ([]model.Family, error) {
	var out []model.Family
	if err := c.do(ctx, http.MethodGet, "/api/families", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateFamily creates a family with the caller as its admin.
func (c *Client) CreateFamily(ctx context.Context, name string) (*model.Family, error) {
	var out model.Family
	if err := c.do(ctx, http.MethodPost, "/api/families", map[string]string{"name": name}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CurrentFamily returns the family requests act in, or nil when the user
// belongs to none.
func (c *Client) CurrentFamily(ctx context.Context) (*model.Family, error) {
	var out *model.Family
	if err := c.do(ctx, http.MethodGet, "/api/families/current", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListMembers(ctx context.Context, familyID string) ([]model.FamilyMember, error) {
	var out []model.FamilyMember
	if err := c.do(ctx, http.MethodGet, membersPath(familyID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// InviteMember adds an unverified member for an existing account.
func (c *Client) InviteMember(ctx context.Context, familyID, email string, role model.Role) (*model.FamilyMember, error) {
	body := struct {
		Email string     `json:"email"`
		Role  model.Role `json:"role,omitempty"`
	}{email, role}
	var out model.FamilyMember
	if err := c.do(ctx, http.MethodPost, membersPath(familyID), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateMemberRole(ctx context.Context, familyID, userID string, role model.Role) (*model.FamilyMember, error) {
	var out model.FamilyMember
	body := map[string]model.Role{"role": role}
	if err := c.do(ctx, http.MethodPut, memberPath(familyID, userID)+"/role", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateMemberFeatures(ctx context.Context, familyID, userID string, features []model.Feature) (*model.FamilyMember, error) {
	if features == nil {
		features = []model.Feature{}
	}
	var out model.FamilyMember
	body := map[string][]model.Feature{"features": features}
	if err := c.do(ctx, http.MethodPut, memberPath(familyID, userID)+"/features", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RemoveMember(ctx context.Context, familyID, userID string) error {
	return c.do(ctx, http.MethodDelete, memberPath(familyID, userID), nil, nil)
}

func (c *Client) ListInvitations(ctx context.Context) ([]model.Invitation, error) {
	var out []model.Invitation
	if err := c.do(ctx, http.MethodGet, "/api/invitations", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AcceptInvitation(ctx context.Context, familyID string) error {
	return c.do(ctx, http.MethodPost, "/api/invitations/"+url.PathEscape(familyID)+"/accept", nil, nil)
}

func (c *Client) DeclineInvitation(ctx context.Context, familyID string) error {
	return c.do(ctx, http.MethodDelete, "/api/invitations/"+url.PathEscape(familyID), nil, nil)
}

func membersPath(familyID string) string {
	return "/api/families/" + url.PathEscape(familyID) + "/members"
}

func memberPath(familyID, userID string) string {
	return membersPath(familyID) + "/" + url.PathEscape(userID)
}
