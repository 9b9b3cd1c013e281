package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/asikmydeen/home-calendar-dashboard-sub000/internal/store"
)

type contextKey string

const principalKey contextKey = "principal"

// principal is the authenticated caller of a request: either a user or a
// display acting on behalf of its owner.
type principal struct {
	userID  string
	display *store.Display
}

// isDisplay reports whether the caller authenticated with a display token.
func (p *principal) isDisplay() bool {
	return p.display != nil
}

func principalFrom(ctx context.Context) *principal {
	p, _ := ctx.Value(principalKey).(*principal)
	return p
}

// authenticate resolves the bearer token into a principal. Display tokens
// are additionally gated on the display's active flag and the owner's
// license; both render as PermissionDenied, not as a missing token.
func (s *Server) authenticate(ctx context.Context, r *http.Request) (*principal, error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return nil, errors.New("missing bearer token")
	}

	user, err := s.store.GetUserByAPIToken(ctx, token)
	if err == nil {
		return &principal{userID: user.ID}, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("resolving user token: %w", err)
	}

	display, err := s.store.GetDisplayByToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errors.New("unknown token")
		}
		return nil, fmt.Errorf("resolving display token: %w", err)
	}

	if !display.Active {
		return nil, fmt.Errorf("%w: display %s is inactive", errPermissionDenied, display.ID)
	}
	owner, err := s.store.GetUser(ctx, display.UserID)
	if err != nil {
		return nil, fmt.Errorf("resolving display owner: %w", err)
	}
	if !owner.LicenseActive {
		return nil, fmt.Errorf("%w: owner license is not active", errPermissionDenied)
	}

	return &principal{userID: owner.ID, display: display}, nil
}

// withAuth wraps a handler with bearer authentication.
func (s *Server) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := s.authenticate(r.Context(), r)
		if err != nil {
			if errors.Is(err, errPermissionDenied) {
				writeError(w, err)
				return
			}
			writeUnauthorized(w)
			return
		}
		ctx := context.WithValue(r.Context(), principalKey, p)
		next(w, r.WithContext(ctx))
	}
}

// resolveDisplayScope checks that the caller may act for the display in the
// path and returns the owner the request operates on. A display token must
// match the display id; a user token must own the display.
func (s *Server) resolveDisplayScope(ctx context.Context, p *principal, displayID string) (string, error) {
	if p.isDisplay() {
		if p.display.ID != displayID {
			return "", fmt.Errorf("%w: token is for another display", errPermissionDenied)
		}
		return p.userID, nil
	}

	display, err := s.store.GetDisplay(ctx, displayID)
	if err != nil {
		return "", fmt.Errorf("display %s: %w", displayID, err)
	}
	if display.UserID != p.userID {
		return "", fmt.Errorf("%w: display belongs to another user", errPermissionDenied)
	}
	return display.UserID, nil
}
