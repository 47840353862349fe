package test

import (
	"net/http"
	"testing"

	"github.com/artacademy/storefront/core/cart"
	"github.com/artacademy/storefront/core/course"
	"github.com/artacademy/storefront/core/video"
)

type likes struct {
	Likes int `json:"likes"`
}

func TestAccess(t *testing.T) {
	env, err := NewTestEnv(t, nil)
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}

	anon := env.NewBrowser(t)
	var eb errorBody

	expect(t, anon, http.MethodGet, env.URL+"/courses/x/video", nil, http.StatusUnauthorized, &eb)
	if eb.Error != "login required" {
		t.Fatalf("unexpected error %q", eb.Error)
	}
	expect(t, anon, http.MethodPost, env.URL+"/courses/x/likes", nil, http.StatusUnauthorized, nil)

	a := env.Client()
	if err := Signup(a, env.URL, "eva@mail.com", "secret1"); err != nil {
		t.Fatal(err)
	}
	if err := Login(a, env.URL, "eva@mail.com", "secret1"); err != nil {
		t.Fatal(err)
	}

	expect(t, a, http.MethodGet, env.URL+"/courses/x/video", nil, http.StatusForbidden, &eb)
	if eb.Error != "purchase required" {
		t.Fatalf("unexpected error %q", eb.Error)
	}
	expect(t, a, http.MethodPost, env.URL+"/courses/x/likes", nil, http.StatusForbidden, nil)

	// Buy from a second browser. The first one's session snapshot is now
	// stale, the gate still lets it through.
	b := env.NewBrowser(t)
	if err := Login(b, env.URL, "eva@mail.com", "secret1"); err != nil {
		t.Fatal(err)
	}
	expect(t, b, http.MethodPut, env.URL+"/cart/items", cart.ItemNew{CourseID: "x"}, http.StatusOK, nil)
	expect(t, b, http.MethodPost, env.URL+"/orders/checkout", nil, http.StatusOK, nil)

	var v video.Video
	expect(t, a, http.MethodGet, env.URL+"/courses/x/video", nil, http.StatusOK, &v)
	if v.URL != "https://videos.test/x" {
		t.Fatalf("unexpected video %+v", v)
	}

	expect(t, a, http.MethodGet, env.URL+"/courses/y/video", nil, http.StatusForbidden, nil)

	var l likes
	expect(t, a, http.MethodPost, env.URL+"/courses/x/likes", nil, http.StatusOK, &l)
	if l.Likes != 1 {
		t.Fatalf("expected 1 like, got %d", l.Likes)
	}
	expect(t, b, http.MethodPost, env.URL+"/courses/x/likes", nil, http.StatusOK, &l)
	if l.Likes != 2 {
		t.Fatalf("likes are not deduplicated, expected 2, got %d", l.Likes)
	}

	var c course.Listing
	expect(t, anon, http.MethodGet, env.URL+"/courses/x", nil, http.StatusOK, &c)
	if c.Likes != 2 {
		t.Fatalf("expected the course to show 2 likes, got %d", c.Likes)
	}
	if c.Purchased {
		t.Fatal("an anonymous client has purchased nothing")
	}
}
