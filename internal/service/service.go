// Package service holds the domain operations behind the JSON API. Every
// call takes a context carrying the caller (see auth.WithAuth) and scopes
// reads and writes to that caller and their current family.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/krishnaganguri/choreo-sweep-sub000/internal/auth"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/model"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/store"
)

var (
	ErrUnauthenticated = errors.New("not signed in")
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("only family admins can do that")
	ErrNotMember       = errors.New("not a verified member of this family")
	ErrNoAccount       = errors.New("no account exists for that email")
	ErrAlreadyMember   = errors.New("user is already a member or invited")
	ErrFeatureDisabled = errors.New("feature is not enabled for you in this family")
	ErrLastAdmin       = errors.New("family must keep at least one admin")
	ErrNoFamily        = errors.New("no family selected")
)

// ValidationError wraps input that failed validation.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	var verrs validator.ValidationErrors
	if !errors.As(e.Err, &verrs) {
		return e.Err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Fields maps each invalid JSON field to its message.
func (e *ValidationError) Fields() map[string]string {
	out := make(map[string]string)
	var verrs validator.ValidationErrors
	if errors.As(e.Err, &verrs) {
		for _, fe := range verrs {
			out[fe.Field()] = fieldMessage(fe)
		}
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "gt":
		return fe.Field() + " must be greater than zero"
	case "datetime":
		return fmt.Sprintf("%s must match %s", fe.Field(), fe.Param())
	case "uuid":
		return fe.Field() + " must be a valid id"
	default:
		return fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag())
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

func validateInput(v any) error {
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return &ValidationError{Err: err}
		}
		return fmt.Errorf("validate input: %w", err)
	}
	return nil
}

func invalid(field, msg string) error {
	return &ValidationError{Err: fmt.Errorf("%s %s", field, msg)}
}

// caller returns the signed-in user id.
func caller(ctx context.Context) (string, error) {
	id := auth.UserID(ctx)
	if id == "" {
		return "", ErrUnauthenticated
	}
	return id, nil
}

// scope resolves which family a caller is acting in.
type scope struct {
	families *store.FamilyStore
	logger   *slog.Logger
	now      func() time.Time
}

func newScope(families *store.FamilyStore, logger *slog.Logger, component string) scope {
	return scope{families: families, logger: logger.With("component", component), now: time.Now}
}

// currentFamily returns the explicitly selected family, else the most
// recently joined verified one, else "".
func (s scope) currentFamily(ctx context.Context, userID string) (string, error) {
	if id := auth.FamilyID(ctx); id != "" {
		return id, nil
	}
	f, err := s.families.Current(userID)
	if err != nil {
		return "", err
	}
	if f == nil {
		return "", nil
	}
	return f.ID, nil
}

// listFamily returns the family whose shared rows the caller may see for
// feature, or "" to show personal rows only. Failures are logged.
func (s scope) listFamily(ctx context.Context, userID string, feature model.Feature) string {
	familyID, err := s.currentFamily(ctx, userID)
	if err != nil {
		s.logger.Error("resolve current family", "user_id", userID, "error", err)
		return ""
	}
	if familyID == "" {
		return ""
	}
	m, err := s.families.GetMember(familyID, userID)
	if err != nil {
		s.logger.Error("get membership", "user_id", userID, "family_id", familyID, "error", err)
		return ""
	}
	if m == nil || !m.IsVerified || !m.CanUse(feature) {
		return ""
	}
	return familyID
}

// requireFeature checks that userID is a verified member of familyID who may
// use feature.
func (s scope) requireFeature(familyID, userID string, feature model.Feature) error {
	m, err := s.families.GetMember(familyID, userID)
	if err != nil {
		return fmt.Errorf("get membership: %w", err)
	}
	if m == nil || !m.IsVerified {
		return ErrNotMember
	}
	if !m.CanUse(feature) {
		return ErrFeatureDisabled
	}
	return nil
}

// addFamily decides where a new row goes. nil means personal. A family id
// wins over isPersonal; isPersonal=false alone means the current family.
func (s scope) addFamily(ctx context.Context, userID string, isPersonal *bool, familyID *string, feature model.Feature) (*string, error) {
	var fam string
	switch {
	case familyID != nil && *familyID != "":
		fam = *familyID
	case isPersonal == nil || *isPersonal:
		return nil, nil
	default:
		cur, err := s.currentFamily(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("resolve current family: %w", err)
		}
		if cur == "" {
			return nil, ErrNoFamily
		}
		fam = cur
	}
	if err := s.requireFeature(fam, userID, feature); err != nil {
		return nil, err
	}
	return &fam, nil
}

// patchFamily resolves the family half of a patch in place. IsPersonal=false
// without a family id moves the row into the current family.
func (s scope) patchFamily(ctx context.Context, userID string, isPersonal *bool, familyID **string, feature model.Feature) error {
	if *familyID != nil && **familyID == "" {
		*familyID = nil
	}
	if *familyID == nil && isPersonal != nil && !*isPersonal {
		cur, err := s.currentFamily(ctx, userID)
		if err != nil {
			return fmt.Errorf("resolve current family: %w", err)
		}
		if cur == "" {
			return ErrNoFamily
		}
		*familyID = &cur
	}
	if *familyID != nil {
		return s.requireFeature(**familyID, userID, feature)
	}
	return nil
}

// today returns midnight UTC of the current day.
func (s scope) today() time.Time {
	n := s.now().UTC()
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
}

func defaultPriority(p model.Priority) model.Priority {
	if p == "" {
		return model.PriorityMedium
	}
	return p
}
