package oauth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/oss-listings/claims-backend/internal/forge"
)

var ErrNoRefreshToken = errors.New("oauth: grant has no refresh token")

// TokenRefresher renews expired forge grants with their refresh token and
// stores the result. GitLab access tokens expire after two hours and rotate
// the refresh token on every use.
type TokenRefresher struct {
	providers Providers
	store     IdentityStore
}

func NewTokenRefresher(providers Providers, store IdentityStore) *TokenRefresher {
	return &TokenRefresher{providers: providers, store: store}
}

func (r *TokenRefresher) Refresh(ctx context.Context, userID string, ident forge.Identity) (*forge.Identity, error) {
	if ident.RefreshToken == "" {
		return nil, ErrNoRefreshToken
	}
	cfg, ok := r.providers[ident.Host]
	if !ok {
		return nil, fmt.Errorf("oauth: no provider configured for %s", ident.Host)
	}

	// No access token forces the source to hit the token endpoint.
	tok, err := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: ident.RefreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("refresh %s token: %w", ident.Host, err)
	}

	fresh := ident
	fresh.AccessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		fresh.RefreshToken = tok.RefreshToken
	}
	fresh.ExpiresAt = nil
	if !tok.Expiry.IsZero() {
		expiry := tok.Expiry
		fresh.ExpiresAt = &expiry
	}
	if raw, ok := tok.Extra("scope").(string); ok && raw != "" {
		fresh.Scopes = forge.ParseScopes(raw)
	}

	if err := r.store.UpsertIdentity(ctx, userID, fresh); err != nil {
		return nil, fmt.Errorf("store refreshed %s token: %w", ident.Host, err)
	}
	return &fresh, nil
}
