// Command seed loads courses and their videos into the document store from
// a JSON file shaped as {"courses": [...], "videos": {"<courseId>": "<url>"}}.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/ardanlabs/conf/v3"
	"github.com/artacademy/storefront/config"
	"github.com/artacademy/storefront/core/course"
	"github.com/artacademy/storefront/core/video"
	"github.com/artacademy/storefront/docstore"
	"github.com/artacademy/storefront/validate"
	"github.com/sirupsen/logrus"
)

var build = "develop"

type seedFile struct {
	Courses []course.CourseNew `json:"courses"`
	Videos  map[string]string  `json:"videos"`
}

func main() {
	log := logrus.New()
	log.SetOutput(os.Stdout)

	if err := run(log); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func run(log *logrus.Logger) error {
	cfg, help, err := config.Parse(build)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	f, err := readSeed(cfg.Seed.File)
	if err != nil {
		return err
	}

	ctx := context.Background()
	store, err := docstore.Open(ctx, cfg.Store, log)
	if err != nil {
		return fmt.Errorf("opening the document store: %w", err)
	}
	defer store.Close()

	n, err := load(ctx, store, f)
	if err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"file":    cfg.Seed.File,
		"courses": n,
		"videos":  len(f.Videos),
	}).Info("seed loaded")
	return nil
}

func readSeed(path string) (seedFile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return seedFile{}, fmt.Errorf("reading seed file: %w", err)
	}

	var f seedFile
	if err := json.Unmarshal(b, &f); err != nil {
		return seedFile{}, fmt.Errorf("decoding seed file %s: %w", path, err)
	}
	return f, nil
}

func load(ctx context.Context, store docstore.Store, f seedFile) (int, error) {
	for i, cn := range f.Courses {
		if err := validate.Check(cn); err != nil {
			return i, fmt.Errorf("course #%d: %w", i, err)
		}

		c, err := course.Create(ctx, store, cn, validate.GenerateID)
		if err != nil {
			return i, fmt.Errorf("course #%d: %w", i, err)
		}
		f.Courses[i].ID = c.ID
	}

	ids := make([]string, 0, len(f.Videos))
	for id := range f.Videos {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		v := video.Video{CourseID: id, URL: f.Videos[id]}
		if err := validate.Check(v); err != nil {
			return len(f.Courses), fmt.Errorf("video of course[%s]: %w", id, err)
		}
		if err := video.Save(ctx, store, v); err != nil {
			return len(f.Courses), err
		}
	}

	return len(f.Courses), nil
}
