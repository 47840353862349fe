package course

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/artacademy/storefront/docstore"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound  = errors.New("course not found")
	ErrInvalidID = errors.New("invalid course id")
)

// Root keys owned by other records. A course stored under one of them would
// replace that whole subtree.
var reservedIDs = map[string]bool{
	"users":  true,
	"videos": true,
}

type Level string

const (
	Basic    Level = "Basic"
	Advanced Level = "Advanced"
)

// ParseLevel accepts the English and the legacy Spanish labels in any case.
func ParseLevel(s string) (Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "basic", "básico", "basico":
		return Basic, true
	case "advanced", "avanzado":
		return Advanced, true
	}
	return Level(s), false
}

func (l *Level) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("level: %w", err)
	}
	*l, _ = ParseLevel(s)
	return nil
}

// Records created outside this program hold prices as JSON numbers, so ours
// do too. Quoted prices are still accepted on read.
func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// Course is stored at the root of the document tree under its ID. Prices are
// in EUR.
type Course struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Image       string          `json:"image"`
	Category    string          `json:"category,omitempty"`
	Level       Level           `json:"level,omitempty"`
	Duration    string          `json:"duration,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Likes       int             `json:"likes"`
	Instructor  string          `json:"instructor,omitempty"`
}

// Valid reports whether c can be listed. Nodes under the root that lack a
// title or an image are other data, not courses.
func (c Course) Valid() bool {
	return c.Title != "" && c.Image != ""
}

type CourseNew struct {
	ID          string          `json:"id"`
	Title       string          `json:"title" validate:"required"`
	Description string          `json:"description"`
	Image       string          `json:"image" validate:"required"`
	Category    string          `json:"category"`
	Level       Level           `json:"level" validate:"omitempty,oneof=Basic Advanced"`
	Duration    string          `json:"duration"`
	Price       decimal.Decimal `json:"price"`
	Instructor  string          `json:"instructor"`
}

func Path(id string) string {
	return "/" + id
}

func checkID(id string) error {
	if id == "" || strings.Contains(id, "/") || reservedIDs[id] {
		return fmt.Errorf("course id %q: %w", id, ErrInvalidID)
	}
	return nil
}

func Fetch(ctx context.Context, store docstore.Store, id string) (Course, error) {
	if checkID(id) != nil {
		return Course{}, fmt.Errorf("course id %q: %w", id, ErrNotFound)
	}

	snap, err := store.Get(ctx, Path(id))
	if errors.Is(err, docstore.ErrInvalidKey) {
		return Course{}, fmt.Errorf("course id %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return Course{}, fmt.Errorf("reading course[%s]: %w", id, err)
	}

	return decode(snap)
}

func decode(snap docstore.Snapshot) (Course, error) {
	if !snap.Exists() {
		return Course{}, fmt.Errorf("course[%s]: %w", snap.Key(), ErrNotFound)
	}

	var c Course
	if err := snap.Decode(&c); err != nil || !c.Valid() {
		return Course{}, fmt.Errorf("course[%s]: %w", snap.Key(), ErrNotFound)
	}
	if c.ID == "" {
		c.ID = snap.Key()
	}
	return c, nil
}

// Create stores a new course, generating its ID when empty.
func Create(ctx context.Context, store docstore.Store, cn CourseNew, genID func() string) (Course, error) {
	c := Course{
		ID:          cn.ID,
		Title:       cn.Title,
		Description: cn.Description,
		Image:       cn.Image,
		Category:    cn.Category,
		Level:       cn.Level,
		Duration:    cn.Duration,
		Price:       cn.Price,
		Instructor:  cn.Instructor,
	}
	if c.ID == "" {
		c.ID = genID()
	}
	if err := checkID(c.ID); err != nil {
		return Course{}, err
	}

	if err := store.Set(ctx, Path(c.ID), c); err != nil {
		return Course{}, fmt.Errorf("writing course[%s]: %w", c.ID, err)
	}
	return c, nil
}

// Like adds one like to the course and returns the new count. The read and
// the write are separate calls, so concurrent likes can be lost.
func Like(ctx context.Context, store docstore.Store, id string) (int, error) {
	c, err := Fetch(ctx, store, id)
	if err != nil {
		return 0, err
	}

	likes := c.Likes + 1
	if err := store.Update(ctx, Path(id), map[string]any{"likes": likes}); err != nil {
		return 0, fmt.Errorf("updating likes of course[%s]: %w", id, err)
	}
	return likes, nil
}
