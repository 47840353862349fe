// Package docstore is a path-addressed JSON document tree with point reads,
// full-replace writes, partial merges and push notification on change.
//
// Paths are '/'-separated and empty segments are ignored, so "/", "" and "//"
// all name the root. Keys may not contain '.', '$', '#', '[' or ']'.
//
// Every single write is atomic. Nothing spanning more than one call is:
// read-modify-write sequences built on top of a Store race under concurrent
// writers and the last write wins.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/artacademy/storefront/database"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidKey = errors.New("invalid key")
	ErrClosed     = errors.New("store is closed")
	ErrNoValue    = errors.New("no value at path")
)

// Store is the remote document store collaborator.
type Store interface {
	Get(ctx context.Context, path string) (Snapshot, error)
	Set(ctx context.Context, path string, value any) error
	Update(ctx context.Context, path string, fields map[string]any) error

	// Subscribe calls fn with the current value at path, then again after
	// every write at, above or below path until cancel is called, ctx is done
	// or the store is closed. Calls are sequential per subscription and may
	// be coalesced. fn must not call Close.
	Subscribe(ctx context.Context, path string, fn func(Snapshot)) (cancel func(), err error)

	Close() error
}

type RedisConfig struct {
	Addr     string `conf:"default:localhost:6379"`
	Password string `conf:"mask"`
	DB       int    `conf:"default:0"`
}

type Config struct {
	Driver    string `conf:"default:memory,help:memory|redis|postgres"`
	Namespace string `conf:"default:storefront"`
	Redis     RedisConfig
	DB        database.Config
}

// Open builds the backend named by cfg.Driver.
func Open(ctx context.Context, cfg Config, log logrus.FieldLogger) (Store, error) {
	switch cfg.Driver {
	case "memory":
		return NewMemory(log), nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("pinging redis at %s: %w", cfg.Redis.Addr, err)
		}
		return NewRedis(ctx, client, cfg.Namespace, log)

	case "postgres":
		db, err := database.Open(cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("opening postgres: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("pinging postgres: %w", err)
		}
		if err := database.Migrate(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrating postgres: %w", err)
		}
		return NewPostgres(ctx, db, database.URL(cfg.DB), cfg.Namespace, log)
	}

	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}

// Snapshot is an immutable copy of the value found at Path.
type Snapshot struct {
	Path  string
	value json.RawMessage
}

func newSnapshot(segs []string, v any, ok bool) (Snapshot, error) {
	s := Snapshot{Path: joinPath(segs)}
	if !ok {
		return s, nil
	}

	b, err := json.Marshal(v)
	if err != nil {
		return Snapshot{}, fmt.Errorf("encoding value at %s: %w", s.Path, err)
	}
	s.value = b
	return s, nil
}

func (s Snapshot) Exists() bool { return len(s.value) > 0 }

// Raw returns the JSON encoding of the value, nil when it does not exist.
func (s Snapshot) Raw() json.RawMessage { return s.value }

// Key is the last path segment, empty for the root.
func (s Snapshot) Key() string {
	if i := strings.LastIndexByte(s.Path, '/'); i >= 0 {
		return s.Path[i+1:]
	}
	return s.Path
}

func (s Snapshot) Decode(v any) error {
	if !s.Exists() {
		return fmt.Errorf("%s: %w", s.Path, ErrNoValue)
	}
	return json.Unmarshal(s.value, v)
}

// Children lists the direct children of an object or array value. Integer
// keys sort numerically ahead of the other keys, which sort lexically.
func (s Snapshot) Children() ([]Snapshot, error) {
	if !s.Exists() {
		return nil, nil
	}

	fields := make(map[string]json.RawMessage)
	switch s.value[0] {
	case '{':
		if err := json.Unmarshal(s.value, &fields); err != nil {
			return nil, fmt.Errorf("decoding children of %s: %w", s.Path, err)
		}
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(s.value, &items); err != nil {
			return nil, fmt.Errorf("decoding children of %s: %w", s.Path, err)
		}
		for i, it := range items {
			fields[strconv.Itoa(i)] = it
		}
	default:
		return nil, nil
	}

	keys := make([]string, 0, len(fields))
	for k, v := range fields {
		if string(v) == "null" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keyLess(keys[i], keys[j]) })

	prefix := strings.TrimSuffix(s.Path, "/")
	children := make([]Snapshot, 0, len(keys))
	for _, k := range keys {
		children = append(children, Snapshot{Path: prefix + "/" + k, value: fields[k]})
	}
	return children, nil
}

func keyLess(a, b string) bool {
	ai, aerr := strconv.ParseInt(a, 10, 64)
	bi, berr := strconv.ParseInt(b, 10, 64)
	switch {
	case aerr == nil && berr == nil:
		return ai < bi
	case aerr == nil:
		return true
	case berr == nil:
		return false
	}
	return a < b
}
