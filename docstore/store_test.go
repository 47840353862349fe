package docstore

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)
	return log
}

type course struct {
	Title string `json:"title"`
	Likes int    `json:"likes"`
}

// runStoreTests exercises the behaviour every backend shares.
func runStoreTests(t *testing.T, open func(t *testing.T) Store) {
	t.Run("get missing", func(t *testing.T) {
		s := open(t)

		snap, err := s.Get(context.Background(), "/nothing/here")
		require.NoError(t, err)
		assert.False(t, snap.Exists())
		assert.Equal(t, "/nothing/here", snap.Path)
		assert.Equal(t, "here", snap.Key())
	})

	t.Run("set and get", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		require.NoError(t, s.Set(ctx, "/1", course{Title: "Oil", Likes: 2}))

		snap, err := s.Get(ctx, "/1")
		require.NoError(t, err)
		require.True(t, snap.Exists())

		var c course
		require.NoError(t, snap.Decode(&c))
		assert.Equal(t, course{Title: "Oil", Likes: 2}, c)

		leaf, err := s.Get(ctx, "/1/title")
		require.NoError(t, err)
		var title string
		require.NoError(t, leaf.Decode(&title))
		assert.Equal(t, "Oil", title)
	})

	t.Run("set nil deletes", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		require.NoError(t, s.Set(ctx, "/users/a@b,com", map[string]any{"email": "a@b.com"}))
		require.NoError(t, s.Set(ctx, "/users/a@b,com", nil))

		snap, err := s.Get(ctx, "/users")
		require.NoError(t, err)
		assert.False(t, snap.Exists(), "empty parent should be pruned")
	})

	t.Run("update merges", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		require.NoError(t, s.Set(ctx, "/2", course{Title: "Ink", Likes: 1}))
		require.NoError(t, s.Update(ctx, "/2", map[string]any{"likes": 5, "extra/deep": "x"}))

		var got map[string]any
		snap, err := s.Get(ctx, "/2")
		require.NoError(t, err)
		require.NoError(t, snap.Decode(&got))

		assert.Equal(t, "Ink", got["title"])
		assert.EqualValues(t, 5, got["likes"])
		assert.Equal(t, map[string]any{"deep": "x"}, got["extra"])

		require.NoError(t, s.Update(ctx, "/2", map[string]any{"extra": nil}))
		snap, err = s.Get(ctx, "/2/extra")
		require.NoError(t, err)
		assert.False(t, snap.Exists())
	})

	t.Run("update creates missing node", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		require.NoError(t, s.Update(ctx, "/users/new@x,com", map[string]any{"currency": "USD"}))

		snap, err := s.Get(ctx, "/users/new@x,com/currency")
		require.NoError(t, err)
		assert.True(t, snap.Exists())
	})

	t.Run("invalid key", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		assert.ErrorIs(t, s.Set(ctx, "/users/a.b@c.com", "x"), ErrInvalidKey)
		assert.ErrorIs(t, s.Update(ctx, "/users", map[string]any{"a.b": 1}), ErrInvalidKey)
		_, err := s.Get(ctx, "/users/a.b")
		assert.ErrorIs(t, err, ErrInvalidKey)
	})

	t.Run("children order", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		for _, k := range []string{"10", "users", "2", "0"} {
			require.NoError(t, s.Set(ctx, "/"+k, map[string]any{"k": k}))
		}

		root, err := s.Get(ctx, "/")
		require.NoError(t, err)

		children, err := root.Children()
		require.NoError(t, err)

		var keys []string
		for _, c := range children {
			keys = append(keys, c.Key())
		}
		assert.Equal(t, []string{"0", "2", "10", "users"}, keys)
		assert.Equal(t, "/10", children[2].Path)
	})

	t.Run("subscribe", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		got := make(chan Snapshot, 64)
		cancel, err := s.Subscribe(ctx, "/", func(snap Snapshot) { got <- snap })
		require.NoError(t, err)
		defer cancel()

		waitFor(t, got, func(s Snapshot) bool { return !s.Exists() })

		require.NoError(t, s.Set(ctx, "/3", course{Title: "Clay"}))
		waitFor(t, got, func(s Snapshot) bool {
			var m map[string]course
			return s.Decode(&m) == nil && m["3"].Title == "Clay"
		})

		require.NoError(t, s.Update(ctx, "/3", map[string]any{"likes": 1}))
		waitFor(t, got, func(s Snapshot) bool {
			var m map[string]course
			return s.Decode(&m) == nil && m["3"].Likes == 1
		})
	})

	t.Run("subscribe below written path", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		got := make(chan Snapshot, 64)
		cancel, err := s.Subscribe(ctx, "/users/a@b,com/currency", func(snap Snapshot) { got <- snap })
		require.NoError(t, err)
		defer cancel()

		require.NoError(t, s.Set(ctx, "/users", map[string]any{"a@b,com": map[string]any{"currency": "GBP"}}))
		waitFor(t, got, func(s Snapshot) bool {
			var c string
			return s.Decode(&c) == nil && c == "GBP"
		})
	})
}

func waitFor(t *testing.T, ch <-chan Snapshot, ok func(Snapshot) bool) {
	t.Helper()

	timeout := time.After(5 * time.Second)
	for {
		select {
		case s := <-ch:
			if ok(s) {
				return
			}
		case <-timeout:
			t.Fatal("timed out waiting for snapshot")
		}
	}
}

func TestMemory(t *testing.T) {
	runStoreTests(t, func(t *testing.T) Store {
		s := NewMemory(testLogger())
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestMemorySubscriptionsStop(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	s := NewMemory(testLogger())
	ctx, cancelCtx := context.WithCancel(context.Background())

	calls := make(chan Snapshot, 8)
	for _, p := range []string{"/", "/a", "/b"} {
		_, err := s.Subscribe(ctx, p, func(snap Snapshot) { calls <- snap })
		require.NoError(t, err)
	}
	cancel, err := s.Subscribe(context.Background(), "/c", func(Snapshot) {})
	require.NoError(t, err)

	cancel()
	cancelCtx()
	require.NoError(t, s.Close())

	_, err = s.Subscribe(context.Background(), "/", func(Snapshot) {})
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, s.Set(context.Background(), "/x", 1), ErrClosed)
}
