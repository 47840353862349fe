package user

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/artacademy/storefront/docstore"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrExists             = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidEmail       = errors.New("email cannot contain ','")
)

// User is the remote record stored at /users/<Key(email)>.
type User struct {
	Email        string `json:"email"`
	PasswordHash string `json:"passwordHash,omitempty"`

	// Password is the plaintext of records written before hashing. It is
	// replaced by PasswordHash on the next successful login.
	Password string `json:"password,omitempty"`

	PurchasedCourses IDs    `json:"purchasedCourses,omitempty"`
	Currency         string `json:"currency,omitempty"`
}

type UserNew struct {
	Email    string `json:"email" validate:"required,email,excludes=0x2C"`
	Password string `json:"password" validate:"required,min=6"`
}

// IDs is a list of course ids. Stores that turned the list into an object
// keyed by index are read back in index order.
type IDs []string

func (ids *IDs) UnmarshalJSON(b []byte) error {
	var list []*string
	if err := json.Unmarshal(b, &list); err == nil {
		out := make(IDs, 0, len(list))
		for _, id := range list {
			if id != nil {
				out = append(out, *id)
			}
		}
		*ids = out
		return nil
	}

	var m map[string]string
	if err := json.Unmarshal(b, &m); err != nil {
		return fmt.Errorf("course id list: %w", err)
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		x, errX := strconv.Atoi(keys[i])
		y, errY := strconv.Atoi(keys[j])
		if errX == nil && errY == nil {
			return x < y
		}
		return keys[i] < keys[j]
	})

	out := make(IDs, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	*ids = out
	return nil
}

// Key turns an email into a store key. Keys cannot hold '.', so it becomes
// ','. Emails holding ',' are refused by CheckEmail so two emails never
// share a key.
func Key(email string) string {
	return strings.ReplaceAll(email, ".", ",")
}

func CheckEmail(email string) error {
	if strings.Contains(email, ",") {
		return ErrInvalidEmail
	}
	return nil
}

func Path(email string) string {
	return "/users/" + Key(email)
}

func Fetch(ctx context.Context, store docstore.Store, email string) (User, error) {
	if err := CheckEmail(email); err != nil {
		return User{}, fmt.Errorf("user[%s]: %w", email, ErrNotFound)
	}

	snap, err := store.Get(ctx, Path(email))
	if errors.Is(err, docstore.ErrInvalidKey) {
		return User{}, fmt.Errorf("user[%s]: %w", email, ErrNotFound)
	}
	if err != nil {
		return User{}, fmt.Errorf("reading user[%s]: %w", email, err)
	}
	if !snap.Exists() {
		return User{}, fmt.Errorf("user[%s]: %w", email, ErrNotFound)
	}

	var u User
	if err := snap.Decode(&u); err != nil {
		return User{}, fmt.Errorf("decoding user[%s]: %w", email, err)
	}
	if u.Email == "" {
		u.Email = email
	}
	return u, nil
}

// Create writes a new record. The existence check and the write are
// separate calls.
func Create(ctx context.Context, store docstore.Store, u User) error {
	if err := CheckEmail(u.Email); err != nil {
		return err
	}

	_, err := Fetch(ctx, store, u.Email)
	switch {
	case err == nil:
		return fmt.Errorf("user[%s]: %w", u.Email, ErrExists)
	case !errors.Is(err, ErrNotFound):
		return err
	}

	if err := store.Set(ctx, Path(u.Email), u); err != nil {
		return fmt.Errorf("writing user[%s]: %w", u.Email, err)
	}
	return nil
}

func SetPurchased(ctx context.Context, store docstore.Store, email string, ids []string) error {
	if err := store.Update(ctx, Path(email), map[string]any{"purchasedCourses": ids}); err != nil {
		return fmt.Errorf("updating purchased courses of user[%s]: %w", email, err)
	}
	return nil
}

func SetCurrency(ctx context.Context, store docstore.Store, email string, code string) error {
	if err := store.Update(ctx, Path(email), map[string]any{"currency": code}); err != nil {
		return fmt.Errorf("updating currency of user[%s]: %w", email, err)
	}
	return nil
}
