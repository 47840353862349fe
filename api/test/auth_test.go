package test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/artacademy/storefront/core/cart"
	"github.com/artacademy/storefront/core/claims"
	"github.com/artacademy/storefront/core/currency"
	"github.com/artacademy/storefront/core/user"
	"github.com/artacademy/storefront/rate"
)

func TestAuth(t *testing.T) {
	env, err := NewTestEnv(t, nil)
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}
	c := env.Client()
	signup := env.URL + "/auth/signup"
	login := env.URL + "/auth/login"

	var eb errorBody
	expect(t, c, http.MethodPost, signup, map[string]string{"email": "bad", "password": "secret1"}, http.StatusBadRequest, &eb)
	if eb.Error != "email must be a valid email address" {
		t.Fatalf("unexpected error %q", eb.Error)
	}
	expect(t, c, http.MethodPost, signup, map[string]string{"email": "lia@mail.com", "password": "abc"}, http.StatusBadRequest, nil)
	expect(t, c, http.MethodPost, signup, map[string]string{"email": "l,ia@mail.com", "password": "secret1"}, http.StatusBadRequest, nil)

	var cur user.Current
	expect(t, c, http.MethodPost, signup, map[string]string{"email": "lia@mail.com", "password": "secret1"}, http.StatusCreated, &cur)
	if cur.Email != "lia@mail.com" || cur.Currency != "EUR" {
		t.Fatalf("unexpected signup response %+v", cur)
	}
	expect(t, c, http.MethodPost, signup, map[string]string{"email": "lia@mail.com", "password": "secret1"}, http.StatusConflict, &eb)
	if eb.Error != "user already exists" {
		t.Fatalf("unexpected error %q", eb.Error)
	}

	u, err := user.Fetch(context.Background(), env.Store, "lia@mail.com")
	if err != nil {
		t.Fatal(err)
	}
	if u.PasswordHash == "" || u.PasswordHash == "secret1" || u.Password != "" {
		t.Fatal("expected only a password hash to be stored")
	}

	expect(t, c, http.MethodPost, login, map[string]string{"email": "lia@mail.com", "password": "wrong1"}, http.StatusUnauthorized, nil)
	expect(t, c, http.MethodPost, login, map[string]string{"email": "nobody@mail.com", "password": "secret1"}, http.StatusUnauthorized, nil)
	expect(t, c, http.MethodGet, env.URL+"/users/current", nil, http.StatusUnauthorized, nil)

	var clm claims.Claims
	expect(t, c, http.MethodPost, login, map[string]string{"email": "lia@mail.com", "password": "secret1"}, http.StatusOK, &clm)
	if clm.Email != "lia@mail.com" || len(clm.PurchasedCourses) != 0 {
		t.Fatalf("unexpected session user %+v", clm)
	}
	expect(t, c, http.MethodGet, env.URL+"/users/current", nil, http.StatusOK, &cur)

	if err := Logout(c, env.URL); err != nil {
		t.Fatal(err)
	}
	expect(t, c, http.MethodGet, env.URL+"/users/current", nil, http.StatusUnauthorized, nil)
}

func TestLegacyPasswordLogin(t *testing.T) {
	env, err := NewTestEnv(t, nil)
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}

	err = env.Store.Set(context.Background(), user.Path("old.timer@mail.com"), map[string]any{
		"email":            "old.timer@mail.com",
		"password":         "hunter2",
		"purchasedCourses": []string{"z"},
		"currency":         "GBP",
	})
	if err != nil {
		t.Fatal(err)
	}

	c := env.Client()
	var clm claims.Claims
	expect(t, c, http.MethodPost, env.URL+"/auth/login", map[string]string{"email": "old.timer@mail.com", "password": "hunter2"}, http.StatusOK, &clm)
	if len(clm.PurchasedCourses) != 1 || clm.PurchasedCourses[0] != "z" {
		t.Fatalf("unexpected purchases %v", clm.PurchasedCourses)
	}

	// The stored currency replaces the one of the anonymous session.
	var cv struct {
		Currency currency.Code `json:"currency"`
	}
	expect(t, c, http.MethodGet, env.URL+"/currency", nil, http.StatusOK, &cv)
	if cv.Currency != currency.GBP {
		t.Fatalf("expected GBP after login, got %s", cv.Currency)
	}

	u, err := user.Fetch(context.Background(), env.Store, "old.timer@mail.com")
	if err != nil {
		t.Fatal(err)
	}
	if u.Password != "" || u.PasswordHash == "" {
		t.Fatal("expected the plaintext password to be replaced by a hash")
	}

	if err := Logout(c, env.URL); err != nil {
		t.Fatal(err)
	}
	if err := Login(c, env.URL, "old.timer@mail.com", "hunter2"); err != nil {
		t.Fatal(err)
	}
}

func TestCurrencyMirror(t *testing.T) {
	env, err := NewTestEnv(t, nil)
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}
	c := env.Client()

	if err := Signup(c, env.URL, "max@mail.com", "secret1"); err != nil {
		t.Fatal(err)
	}
	if err := Login(c, env.URL, "max@mail.com", "secret1"); err != nil {
		t.Fatal(err)
	}

	expect(t, c, http.MethodPut, env.URL+"/currency", currency.Choice{Currency: "USD"}, http.StatusOK, nil)
	env.Drain(t)

	u, err := user.Fetch(context.Background(), env.Store, "max@mail.com")
	if err != nil {
		t.Fatal(err)
	}
	if u.Currency != "USD" {
		t.Fatalf("expected the preference to reach the user record, got %q", u.Currency)
	}
}

func TestLogoutKeepsCartAndCurrency(t *testing.T) {
	env, err := NewTestEnv(t, nil)
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}
	c := env.Client()

	if err := Signup(c, env.URL, "ivy@mail.com", "secret1"); err != nil {
		t.Fatal(err)
	}
	if err := Login(c, env.URL, "ivy@mail.com", "secret1"); err != nil {
		t.Fatal(err)
	}

	expect(t, c, http.MethodPut, env.URL+"/currency", currency.Choice{Currency: "USD"}, http.StatusOK, nil)
	expect(t, c, http.MethodPut, env.URL+"/cart/items", cart.ItemNew{CourseID: "x"}, http.StatusOK, nil)

	if err := Logout(c, env.URL); err != nil {
		t.Fatal(err)
	}
	expect(t, c, http.MethodGet, env.URL+"/users/current", nil, http.StatusUnauthorized, nil)

	var v cart.View
	expect(t, c, http.MethodGet, env.URL+"/cart", nil, http.StatusOK, &v)
	if len(v.Items) != 1 || v.Items[0].CourseID != "x" {
		t.Fatalf("expected the cart to survive logout, got %+v", v.Items)
	}

	var cv struct {
		Currency currency.Code `json:"currency"`
	}
	expect(t, c, http.MethodGet, env.URL+"/currency", nil, http.StatusOK, &cv)
	if cv.Currency != currency.USD {
		t.Fatalf("expected USD after logout, got %s", cv.Currency)
	}
}

func TestLoginRateLimit(t *testing.T) {
	lim := rate.NewLimiter(2, 10, rate.Every(time.Hour))
	defer lim.Stop()

	env, err := NewTestEnv(t, lim)
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}
	c := env.Client()
	body := map[string]string{"email": "rob@mail.com", "password": "wrong1"}

	expect(t, c, http.MethodPost, env.URL+"/auth/login", body, http.StatusUnauthorized, nil)
	expect(t, c, http.MethodPost, env.URL+"/auth/login", body, http.StatusUnauthorized, nil)
	expect(t, c, http.MethodPost, env.URL+"/auth/login", body, http.StatusTooManyRequests, nil)

	// Only login and signup are limited.
	expect(t, c, http.MethodGet, env.URL+"/courses", nil, http.StatusOK, nil)
}
