package user

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/artacademy/storefront/docstore"
	"golang.org/x/crypto/bcrypt"
)

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// Authenticate returns the user when password matches. Unknown users and
// wrong passwords both fail with ErrInvalidCredentials. A record still
// holding a plaintext password is rewritten with a hash on success.
func Authenticate(ctx context.Context, store docstore.Store, email, password string) (User, error) {
	u, err := Fetch(ctx, store, email)
	if errors.Is(err, ErrNotFound) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}

	switch {
	case u.PasswordHash != "":
		if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
			return User{}, ErrInvalidCredentials
		}
		return u, nil

	case u.Password != "":
		if subtle.ConstantTimeCompare([]byte(u.Password), []byte(password)) != 1 {
			return User{}, ErrInvalidCredentials
		}
		return upgrade(ctx, store, u)
	}

	// Accounts created through an OAuth provider have no password.
	return User{}, ErrInvalidCredentials
}

func upgrade(ctx context.Context, store docstore.Store, u User) (User, error) {
	hash, err := HashPassword(u.Password)
	if err != nil {
		return User{}, err
	}

	fields := map[string]any{
		"passwordHash": hash,
		"password":     nil,
	}
	if err := store.Update(ctx, Path(u.Email), fields); err != nil {
		return User{}, fmt.Errorf("upgrading password of user[%s]: %w", u.Email, err)
	}

	u.PasswordHash = hash
	u.Password = ""
	return u, nil
}
