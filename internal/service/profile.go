package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/krishnaganguri/choreo-sweep-sub000/internal/model"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/store"
)

type ProfileService struct {
	profiles *store.ProfileStore
	logger   *slog.Logger
}

func NewProfileService(profiles *store.ProfileStore, logger *slog.Logger) *ProfileService {
	return &ProfileService{profiles: profiles, logger: logger.With("component", "profiles")}
}

// ProfileUpdate is the editable part of a profile.
type ProfileUpdate struct {
	Username    string `json:"username" validate:"required,min=2,max=50"`
	DisplayName string `json:"display_name" validate:"max=100"`
}

func (s *ProfileService) Get(ctx context.Context) (*model.Profile, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	p, err := s.profiles.Get(userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotFound
	}
	return p, nil
}

// Update saves the caller's profile, creating it when sign-up could not.
// An empty display name falls back to the username.
func (s *ProfileService) Update(ctx context.Context, in ProfileUpdate) (*model.Profile, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	in.Username = strings.TrimSpace(in.Username)
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if in.DisplayName == "" {
		in.DisplayName = in.Username
	}
	return s.profiles.Upsert(userID, in.Username, in.DisplayName)
}
