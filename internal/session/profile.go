package session

import (
	"context"

	"github.com/estate-link/estate_link/internal/apiclient"
)

func (m *Manager) currentToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.user == nil {
		return ""
	}
	return m.state.token
}

// RefreshProfile re-fetches the profile of the signed-in broker.
func (m *Manager) RefreshProfile(ctx context.Context) Result {
	token := m.currentToken()
	if token == "" {
		return m.finish(fail(OpRefreshProfile, ErrUnauthenticated))
	}

	return m.run(OpRefreshProfile, func() Result {
		seq := m.nextFetch()
		user, err := m.api.Profile(ctx, token)
		if err != nil {
			return fail(OpRefreshProfile, classify(OpRefreshProfile, err))
		}
		if !m.installUser(token, seq, user) {
			return fail(OpRefreshProfile, ErrSuperseded)
		}
		return succeed(OpRefreshProfile, "Profile refreshed")
	})
}

// UpdateUserProfile sends a partial update and replaces the cached profile
// with the server's copy. An empty patch round-trips the current profile.
func (m *Manager) UpdateUserProfile(ctx context.Context, patch apiclient.ProfilePatch) Result {
	token := m.currentToken()
	if token == "" {
		return m.finish(fail(OpUpdateProfile, ErrUnauthenticated))
	}
	if err := validatePatch(patch); err != nil {
		return m.finish(fail(OpUpdateProfile, err))
	}

	return m.run(OpUpdateProfile, func() Result {
		user, err := m.api.UpdateProfile(ctx, token, patch)
		if err != nil {
			return fail(OpUpdateProfile, classify(OpUpdateProfile, err))
		}
		if !m.installWrite(token, user) {
			return fail(OpUpdateProfile, ErrSuperseded)
		}
		return succeed(OpUpdateProfile, "Profile updated successfully")
	})
}
