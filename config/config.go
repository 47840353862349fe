// Package config holds the settings of the storefront commands. Values come
// from STOREFRONT_* environment variables or the matching flags.
package config

import (
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/artacademy/storefront/docstore"
)

const Prefix = "STOREFRONT"

type Web struct {
	Address         string        `conf:"default:0.0.0.0:8000"`
	ReadTimeout     time.Duration `conf:"default:5s"`
	WriteTimeout    time.Duration `conf:"default:10s"`
	IdleTimeout     time.Duration `conf:"default:120s"`
	ShutdownTimeout time.Duration `conf:"default:20s"`
}

type Cors struct {
	Origin string `conf:"help:allowed origin, CORS is off when empty"`
}

type Session struct {
	Lifetime time.Duration `conf:"default:24h"`
	Secure   bool          `conf:"default:false"`
}

// Auth limits login and signup attempts per remote address.
type Auth struct {
	LoginBurst    int           `conf:"default:5"`
	LoginInterval time.Duration `conf:"default:12s"`
	LoginExpiry   int           `conf:"default:10,help:minutes before an idle client is forgotten"`
}

type Google struct {
	Client      string
	Secret      string `conf:"mask"`
	URL         string `conf:"default:https://accounts.google.com"`
	RedirectURL string `conf:"default:http://localhost:8000/auth/oauth-callback/google"`
}

type Oauth struct {
	DiscoveryTimeout time.Duration `conf:"default:10s"`
	LoginRedirectURL string        `conf:"default:http://localhost:3000"`
	Google           Google
}

type Seed struct {
	File string `conf:"default:seed.json"`
}

type Config struct {
	conf.Version
	Web     Web
	Cors    Cors
	Store   docstore.Config
	Session Session
	Auth    Auth
	Oauth   Oauth
	Seed    Seed
}

// Parse fills cfg from the environment and the command line. help is the
// usage text when --help or --version was asked for, in which case err is
// conf.ErrHelpWanted.
func Parse(build string) (cfg Config, help string, err error) {
	cfg.Version = conf.Version{
		Build: build,
		Desc:  "e-learning storefront",
	}

	help, err = conf.Parse(Prefix, &cfg)
	return cfg, help, err
}
