package claims

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/artacademy/storefront/session"
)

// Claims is the client-side snapshot of the logged in user. It is refreshed
// on login and checkout only, so it may lag behind the remote record.
type Claims struct {
	Email            string   `json:"email"`
	PurchasedCourses []string `json:"purchasedCourses"`
	Currency         string   `json:"currency,omitempty"`
}

type ctxKey int

const claimsKey ctxKey = 1

func Set(ctx context.Context, claims Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

func Get(ctx context.Context) (Claims, error) {
	v, ok := ctx.Value(claimsKey).(Claims)
	if !ok {
		return Claims{}, errors.New("claim value missing from context")
	}
	return v, nil
}

// Email returns the logged in user's email, empty when nobody is.
func Email(ctx context.Context) string {
	c, err := Get(ctx)
	if err != nil {
		return ""
	}
	return c.Email
}

func Save(ctx context.Context, s session.Storage, c Claims) error {
	b, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding session user: %w", err)
	}

	s.Put(ctx, session.KeyUser, string(b))
	return nil
}

// Load reads the snapshot saved by Save. ok is false when nobody is logged in.
func Load(ctx context.Context, s session.Storage) (c Claims, ok bool, err error) {
	raw := s.Get(ctx, session.KeyUser)
	if raw == "" {
		return Claims{}, false, nil
	}

	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return Claims{}, false, fmt.Errorf("decoding session user: %w", err)
	}
	if c.Email == "" {
		return Claims{}, false, nil
	}
	return c, true, nil
}

func Clear(ctx context.Context, s session.Storage) {
	s.Remove(ctx, session.KeyUser)
}
