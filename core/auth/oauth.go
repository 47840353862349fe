package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/artacademy/storefront/api/web"
	"github.com/artacademy/storefront/api/weberr"
	"github.com/artacademy/storefront/core/currency"
	"github.com/artacademy/storefront/core/user"
	"github.com/artacademy/storefront/docstore"
	"github.com/artacademy/storefront/random"
	"github.com/artacademy/storefront/session"
	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

const stateLength = 32

type ProviderConfig struct {
	Name        string
	Client      string
	Secret      string
	URL         string
	RedirectURL string
}

type Provider struct {
	oauth2.Config
	verifier *oidc.IDTokenVerifier
}

// MakeProviders discovers every configured provider. Configs without a
// client id are skipped.
func MakeProviders(ctx context.Context, cfgs []ProviderConfig) (map[string]Provider, error) {
	provs := make(map[string]Provider, len(cfgs))

	for _, cfg := range cfgs {
		if cfg.Client == "" {
			continue
		}

		p, err := oidc.NewProvider(ctx, cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("discovering provider %s at %s: %w", cfg.Name, cfg.URL, err)
		}

		provs[cfg.Name] = Provider{
			Config: oauth2.Config{
				ClientID:     cfg.Client,
				ClientSecret: cfg.Secret,
				Endpoint:     p.Endpoint(),
				RedirectURL:  cfg.RedirectURL,
				Scopes:       []string{oidc.ScopeOpenID, "email"},
			},
			verifier: p.Verifier(&oidc.Config{ClientID: cfg.Client}),
		}
	}

	return provs, nil
}

func HandleOauthLogin(sessions *session.Manager, provs map[string]Provider) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		name := web.Param(r, "provider")
		prov, ok := provs[name]
		if !ok {
			return weberr.NotFound(fmt.Errorf("unknown provider %q", name))
		}

		state, err := random.StringSecure(stateLength)
		if err != nil {
			return fmt.Errorf("generating oauth state: %w", err)
		}
		sessions.Put(ctx, session.KeyOauthState, state)

		http.Redirect(w, r, prov.AuthCodeURL(state), http.StatusSeeOther)
		return nil
	}
}

// HandleOauthCallback logs in the owner of a verified email, creating a
// password-less record on first visit.
func HandleOauthCallback(store docstore.Store, sessions *session.Manager, provs map[string]Provider, pref *currency.Preference, redirectURL string) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		name := web.Param(r, "provider")
		prov, ok := provs[name]
		if !ok {
			return weberr.NotFound(fmt.Errorf("unknown provider %q", name))
		}

		state := sessions.PopString(ctx, session.KeyOauthState)
		if state == "" || r.URL.Query().Get("state") != state {
			return weberr.NotAuthorized(errors.New("oauth state mismatch"))
		}

		tok, err := prov.Exchange(ctx, r.URL.Query().Get("code"))
		if err != nil {
			return weberr.NotAuthorized(fmt.Errorf("exchanging oauth code: %w", err))
		}

		raw, ok := tok.Extra("id_token").(string)
		if !ok {
			return weberr.NotAuthorized(errors.New("id token missing from oauth response"))
		}

		idt, err := prov.verifier.Verify(ctx, raw)
		if err != nil {
			return weberr.NotAuthorized(fmt.Errorf("verifying id token: %w", err))
		}

		var info struct {
			Email    string `json:"email"`
			Verified bool   `json:"email_verified"`
		}
		if err := idt.Claims(&info); err != nil {
			return fmt.Errorf("decoding id token claims: %w", err)
		}
		if info.Email == "" || !info.Verified {
			return weberr.NotAuthorized(errors.New("provider did not verify the email"))
		}

		u, err := user.Fetch(ctx, store, info.Email)
		if errors.Is(err, user.ErrNotFound) {
			u = user.User{Email: info.Email, Currency: string(pref.Get(ctx))}
			err = user.Create(ctx, store, u)
		}
		if err != nil {
			return fmt.Errorf("loading oauth user[%s]: %w", info.Email, err)
		}

		if _, err := login(ctx, sessions, pref, u); err != nil {
			return err
		}

		http.Redirect(w, r, redirectURL, http.StatusSeeOther)
		return nil
	}
}
