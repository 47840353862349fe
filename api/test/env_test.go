package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/artacademy/storefront/api"
	"github.com/artacademy/storefront/api/background"
	"github.com/artacademy/storefront/core/course"
	"github.com/artacademy/storefront/core/video"
	"github.com/artacademy/storefront/docstore"
	"github.com/artacademy/storefront/rate"
	"github.com/artacademy/storefront/session"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

// TestEnv is a running API over an in-memory store seeded with three
// courses. Server.Client() keeps cookies, so it acts as one browser.
type TestEnv struct {
	*httptest.Server
	Store   docstore.Store
	Log     *logrus.Logger
	Hook    *logtest.Hook
	Courses map[string]course.Course
	bg      *background.Background
}

var seedCourses = []course.Course{
	{ID: "x", Title: "Oil painting", Image: "oil.png", Category: "Painting", Level: course.Basic, Price: decimal.NewFromInt(20)},
	{ID: "y", Title: "Charcoal drawing", Image: "charcoal.png", Category: "Drawing", Level: course.Advanced, Price: decimal.NewFromInt(30)},
	{ID: "z", Title: "Watercolor", Image: "water.png", Category: "Painting", Level: course.Advanced, Price: decimal.RequireFromString("15.50")},
}

func NewTestEnv(t *testing.T, limiter *rate.Limiter) (*TestEnv, error) {
	t.Helper()

	log, hook := logtest.NewNullLogger()
	ctx := context.Background()

	store := docstore.NewMemory(log)
	t.Cleanup(func() { store.Close() })

	courses := make(map[string]course.Course)
	for _, c := range seedCourses {
		if err := store.Set(ctx, course.Path(c.ID), c); err != nil {
			return nil, fmt.Errorf("seeding course[%s]: %w", c.ID, err)
		}
		if err := video.Save(ctx, store, video.Video{CourseID: c.ID, URL: "https://videos.test/" + c.ID}); err != nil {
			return nil, err
		}
		courses[c.ID] = c
	}

	catalog, err := course.NewCatalog(ctx, store, log)
	if err != nil {
		return nil, err
	}
	t.Cleanup(catalog.Close)

	wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := catalog.Wait(wctx); err != nil {
		return nil, fmt.Errorf("waiting for the catalog: %w", err)
	}

	bg := background.New(log)

	mux := api.APIMux(api.APIConfig{
		Log:          log,
		Store:        store,
		Catalog:      catalog,
		Session:      session.New(time.Hour, false),
		Background:   bg,
		LoginLimiter: limiter,
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	srv.Client().Jar = jar

	return &TestEnv{
		Server:  srv,
		Store:   store,
		Log:     log,
		Hook:    hook,
		Courses: courses,
		bg:      bg,
	}, nil
}

// NewBrowser is a second client with its own cookies.
func (env *TestEnv) NewBrowser(t *testing.T) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &http.Client{Jar: jar, Transport: env.Client().Transport}
}

// Drain waits for background work started by the requests so far. Work
// started afterwards is dropped.
func (env *TestEnv) Drain(t *testing.T) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := env.bg.Shutdown(ctx); err != nil {
		t.Fatal(err)
	}
}

// Do sends body as JSON and returns the status code. When out is not nil
// the response body is decoded into it.
func Do(c *http.Client, method, url string, body any, out any) (int, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		rd = bytes.NewReader(b)
	}

	r, err := http.NewRequest(method, url, rd)
	if err != nil {
		return 0, err
	}
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}

	w, err := c.Do(r)
	if err != nil {
		return 0, err
	}
	defer w.Body.Close()

	if out != nil && w.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(w.Body).Decode(out); err != nil {
			return w.StatusCode, fmt.Errorf("decoding %s %s response: %w", method, url, err)
		}
	}
	return w.StatusCode, nil
}

func expect(t *testing.T, c *http.Client, method, url string, body any, want int, out any) {
	t.Helper()

	got, err := Do(c, method, url, body, out)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Fatalf("%s %s: expected status %d, got %d", method, url, want, got)
	}
}

func Signup(c *http.Client, url, email, pass string) error {
	return call(c, http.MethodPost, url+"/auth/signup", map[string]string{"email": email, "password": pass}, http.StatusCreated)
}

func Login(c *http.Client, url, email, pass string) error {
	return call(c, http.MethodPost, url+"/auth/login", map[string]string{"email": email, "password": pass}, http.StatusOK)
}

func Logout(c *http.Client, url string) error {
	return call(c, http.MethodPost, url+"/auth/logout", nil, http.StatusNoContent)
}

func call(c *http.Client, method, url string, body any, want int) error {
	got, err := Do(c, method, url, body, nil)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("%s %s: expected status %d, got %d", method, url, want, got)
	}
	return nil
}

type errorBody struct {
	Error string `json:"error"`
}
