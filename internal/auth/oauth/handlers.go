package oauth

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/oss-listings/claims-backend/internal/auth"
	"github.com/oss-listings/claims-backend/internal/forge"
	"github.com/oss-listings/claims-backend/internal/logging"
	"github.com/oss-listings/claims-backend/internal/users"
)

// IdentityStore persists linked forge accounts.
type IdentityStore interface {
	UpsertIdentity(ctx context.Context, userID string, ident forge.Identity) error
}

type Handler struct {
	providers  Providers
	states     *StateStore
	clients    forge.Clients
	identities IdentityStore
	webAppURL  string
}

func NewHandler(providers Providers, states *StateStore, clients forge.Clients, identities IdentityStore, webAppURL string) *Handler {
	return &Handler{
		providers:  providers,
		states:     states,
		clients:    clients,
		identities: identities,
		webAppURL:  strings.TrimRight(webAppURL, "/"),
	}
}

// RegisterConnect attaches the authenticated connect route.
func (h *Handler) RegisterConnect(rg *gin.RouterGroup) {
	rg.GET("/forge/:host/connect", h.Connect)
}

// RegisterCallback attaches the provider redirect target. It carries no
// session; the state value identifies the user.
func (h *Handler) RegisterCallback(r gin.IRoutes) {
	r.GET("/auth/forge/:host/callback", h.Callback)
}

// Connect returns the provider authorization URL for linking an account.
func (h *Handler) Connect(c *gin.Context) {
	host, cfg, ok := h.provider(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()
	if err := h.states.Save(ctx, state, pending{UserID: auth.UserDBID(c), Host: host, Verifier: verifier}); err != nil {
		logging.New(ctx).LogError("forge_connect", err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "could not start account linking"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":  true,
		"url": cfg.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier)),
	})
}

// Callback finishes linking and sends the browser back to the web app.
func (h *Handler) Callback(c *gin.Context) {
	host, cfg, ok := h.provider(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	log := logging.New(ctx)

	p, err := h.states.Consume(ctx, c.Query("state"))
	if err != nil {
		if !errors.Is(err, ErrInvalidState) {
			log.LogError("forge_callback", err)
		}
		h.redirect(c, host, "invalid_state")
		return
	}
	if p.Host != host {
		h.redirect(c, host, "invalid_state")
		return
	}
	if c.Query("error") != "" || c.Query("code") == "" {
		h.redirect(c, host, "denied")
		return
	}

	tok, err := cfg.Exchange(ctx, c.Query("code"), oauth2.VerifierOption(p.Verifier))
	if err != nil {
		log.LogError("forge_token_exchange", err)
		h.redirect(c, host, "exchange_failed")
		return
	}

	api, err := h.clients.For(host)
	if err != nil {
		log.LogError("forge_callback", err)
		h.redirect(c, host, "exchange_failed")
		return
	}
	account, err := api.CurrentUser(ctx, tok.AccessToken)
	if err != nil {
		log.LogError("forge_current_user", err)
		h.redirect(c, host, "exchange_failed")
		return
	}

	ident := forge.Identity{
		Host:         host,
		ForgeUserID:  account.ID,
		Login:        account.Login,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Scopes:       grantedScopes(tok, cfg),
	}
	if !tok.Expiry.IsZero() {
		expiry := tok.Expiry
		ident.ExpiresAt = &expiry
	}

	if err := h.identities.UpsertIdentity(ctx, p.UserID, ident); err != nil {
		if errors.Is(err, users.ErrIdentityInUse) {
			h.redirect(c, host, "in_use")
			return
		}
		log.LogError("link_identity", err)
		h.redirect(c, host, "exchange_failed")
		return
	}

	log.LogInfof("link_identity", "user=%s host=%s login=%s scopes=%v", p.UserID, host, account.Login, ident.Scopes)
	h.redirect(c, host, "ok")
}

func (h *Handler) provider(c *gin.Context) (forge.Host, *oauth2.Config, bool) {
	host, err := forge.ParseHost(c.Param("host"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "unsupported host"})
		return "", nil, false
	}
	cfg, ok := h.providers[host]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "account linking is not configured for " + string(host)})
		return "", nil, false
	}
	return host, cfg, true
}

func (h *Handler) redirect(c *gin.Context, host forge.Host, result string) {
	q := url.Values{"forge_link": {result}, "host": {string(host)}}
	c.Redirect(http.StatusFound, h.webAppURL+"/settings/accounts?"+q.Encode())
}

// grantedScopes reads the scopes the provider actually granted, which can be
// fewer than requested. Without a scope field the request is assumed granted.
func grantedScopes(tok *oauth2.Token, cfg *oauth2.Config) []string {
	if raw, ok := tok.Extra("scope").(string); ok {
		return forge.ParseScopes(raw)
	}
	return append([]string(nil), cfg.Scopes...)
}
