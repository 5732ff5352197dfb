package oauth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/oss-listings/claims-backend/internal/forge"
)

func gitlabProviders(tokenURL string) Providers {
	return Providers{forge.HostGitLab: &oauth2.Config{
		ClientID:     "id",
		ClientSecret: "secret",
		Endpoint:     oauth2.Endpoint{AuthURL: "https://gitlab.example/oauth/authorize", TokenURL: tokenURL},
		Scopes:       []string{"read_user", "read_api"},
	}}
}

func expiredGitLabIdentity() forge.Identity {
	expired := time.Now().Add(-time.Minute)
	return forge.Identity{
		Host:         forge.HostGitLab,
		ForgeUserID:  "7",
		Login:        "tanuki",
		AccessToken:  "old-access",
		RefreshToken: "old-refresh",
		Scopes:       []string{"read_user", "read_api"},
		ExpiresAt:    &expired,
	}
}

func TestTokenRefresher(t *testing.T) {
	t.Run("renews and stores the rotated grant", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
			assert.Equal(t, "old-refresh", r.Form.Get("refresh_token"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"new-access","refresh_token":"new-refresh","token_type":"bearer","expires_in":7200,"scope":"read_user read_api"}`))
		}))
		t.Cleanup(ts.Close)

		store := &memIdentities{}
		fresh, err := NewTokenRefresher(gitlabProviders(ts.URL), store).Refresh(context.Background(), "u-1", expiredGitLabIdentity())
		require.NoError(t, err)

		assert.Equal(t, "new-access", fresh.AccessToken)
		assert.Equal(t, "new-refresh", fresh.RefreshToken)
		require.NotNil(t, fresh.ExpiresAt)
		assert.False(t, fresh.Expired(time.Now()))
		assert.True(t, fresh.HasRequiredScope())

		assert.Equal(t, "u-1", store.userID)
		assert.Equal(t, "new-refresh", store.ident.RefreshToken)
		assert.Equal(t, "7", store.ident.ForgeUserID)
	})

	t.Run("revoked refresh token", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
		}))
		t.Cleanup(ts.Close)

		store := &memIdentities{}
		_, err := NewTokenRefresher(gitlabProviders(ts.URL), store).Refresh(context.Background(), "u-1", expiredGitLabIdentity())
		assert.Error(t, err)
		assert.Empty(t, store.userID)
	})

	t.Run("missing refresh token or provider", func(t *testing.T) {
		r := NewTokenRefresher(Providers{}, &memIdentities{})

		ident := expiredGitLabIdentity()
		_, err := r.Refresh(context.Background(), "u-1", ident)
		assert.ErrorContains(t, err, "no provider")

		ident.RefreshToken = ""
		_, err = r.Refresh(context.Background(), "u-1", ident)
		assert.ErrorIs(t, err, ErrNoRefreshToken)
	})
}
