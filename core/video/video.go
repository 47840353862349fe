package video

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/artacademy/storefront/api/web"
	"github.com/artacademy/storefront/api/weberr"
	"github.com/artacademy/storefront/docstore"
)

var ErrNotFound = errors.New("video not found")

// Video is the content unlocked by buying a course. One per course, stored
// at /videos/<courseId>.
type Video struct {
	CourseID string `json:"courseId"`
	URL      string `json:"url" validate:"required,url"`
}

func Path(courseID string) string {
	return "/videos/" + courseID
}

func Fetch(ctx context.Context, store docstore.Store, courseID string) (Video, error) {
	if courseID == "" || strings.Contains(courseID, "/") {
		return Video{}, fmt.Errorf("video of course[%s]: %w", courseID, ErrNotFound)
	}

	snap, err := store.Get(ctx, Path(courseID))
	if errors.Is(err, docstore.ErrInvalidKey) {
		return Video{}, fmt.Errorf("video of course[%s]: %w", courseID, ErrNotFound)
	}
	if err != nil {
		return Video{}, fmt.Errorf("reading video of course[%s]: %w", courseID, err)
	}

	var v Video
	if err := snap.Decode(&v); err != nil || v.URL == "" {
		return Video{}, fmt.Errorf("video of course[%s]: %w", courseID, ErrNotFound)
	}
	v.CourseID = courseID
	return v, nil
}

func Save(ctx context.Context, store docstore.Store, v Video) error {
	if err := store.Set(ctx, Path(v.CourseID), v); err != nil {
		return fmt.Errorf("writing video of course[%s]: %w", v.CourseID, err)
	}
	return nil
}

// HandleShow must sit behind the access check.
func HandleShow(store docstore.Store) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")

		v, err := Fetch(ctx, store, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return weberr.NotFound(err, weberr.WithFields(map[string]interface{}{"course_id": id}))
			}
			return fmt.Errorf("fetching video: %w", err)
		}

		return web.Respond(ctx, w, v, http.StatusOK)
	}
}
