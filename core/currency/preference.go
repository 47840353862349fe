package currency

import (
	"context"
	"errors"
	"time"

	"github.com/artacademy/storefront/api/background"
	"github.com/artacademy/storefront/session"
	"github.com/sirupsen/logrus"
)

var ErrUnsupported = errors.New("unsupported currency")

const mirrorTimeout = 10 * time.Second

// MirrorFunc copies the preference of the user identified by email to the
// remote store.
type MirrorFunc func(ctx context.Context, email string, c Code) error

// Preference is the client's display currency, kept in its session and
// mirrored to the remote user record while someone is logged in.
type Preference struct {
	storage session.Storage
	mirror  MirrorFunc
	bg      *background.Background
	log     logrus.FieldLogger
}

func NewPreference(storage session.Storage, mirror MirrorFunc, bg *background.Background, log logrus.FieldLogger) *Preference {
	return &Preference{
		storage: storage,
		mirror:  mirror,
		bg:      bg,
		log:     log,
	}
}

func (p *Preference) Get(ctx context.Context) Code {
	return Parse(p.storage.Get(ctx, session.KeyCurrency))
}

// Apply stores c locally without touching the remote record. Used when the
// value came from the remote record in the first place.
func (p *Preference) Apply(ctx context.Context, c Code) {
	if !c.Supported() {
		c = Canonical
	}
	p.storage.Put(ctx, session.KeyCurrency, string(c))
}

// Set stores c locally and, when email is not empty, mirrors it to the
// remote record in the background. Mirror failures are only logged.
func (p *Preference) Set(ctx context.Context, c Code, email string) error {
	if !c.Supported() {
		return ErrUnsupported
	}

	p.storage.Put(ctx, session.KeyCurrency, string(c))

	if email == "" || p.mirror == nil {
		return nil
	}

	p.bg.Run(func() {
		ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
		defer cancel()

		if err := p.mirror(ctx, email, c); err != nil {
			p.log.WithError(err).WithField("currency", c).Error("mirroring currency preference")
		}
	})

	return nil
}
