package main

import (
	"fmt"
	"os"

	"github.com/jrsteele09/bizdesk/api"
	"github.com/jrsteele09/bizdesk/internal/config"
	"github.com/jrsteele09/bizdesk/router"
	"github.com/jrsteele09/bizdesk/session"
	"github.com/jrsteele09/bizdesk/session/filerepo"
	"github.com/jrsteele09/bizdesk/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type app struct {
	config   config.Config
	session  *session.Manager
	client   *api.Client
	store    *store.Store
	guard    *router.Guard
	registry *prometheus.Registry
}

func newApp() (*app, error) {
	if path := os.Getenv(config.ConfigFileVar); path != "" {
		if err := config.LoadFile(path); err != nil {
			return nil, err
		}
	}
	c := config.New()
	setupLogging(c)

	sess, err := session.NewManager(filerepo.New(c.GetSessionFile(), filerepo.WithPassphrase(c.GetSessionPassphrase())))
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	registry := prometheus.NewRegistry()
	client := api.New(c.GetBaseURL(), sess,
		api.WithTimeout(c.GetRequestTimeout()),
		api.WithRateLimit(c.GetRateLimit(), 1),
		api.WithMetrics(api.NewMetrics(registry)),
	)
	s := store.New(client, store.WithStaleTime(c.GetStaleTime()))

	return &app{
		config:   c,
		session:  sess,
		client:   client,
		store:    s,
		guard:    router.NewGuard(client, s),
		registry: registry,
	}, nil
}

func setupLogging(c config.Config) {
	level, err := zerolog.ParseLevel(c.GetLogLevel())
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if c.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		return
	}
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// logMetrics writes the request counters of this run at debug level
func (a *app) logMetrics() {
	if zerolog.GlobalLevel() > zerolog.DebugLevel {
		return
	}
	families, err := a.registry.Gather()
	if err != nil {
		log.Err(err).Msg("failed to gather metrics")
		return
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			event := log.Debug().Str("metric", mf.GetName())
			for _, lp := range m.GetLabel() {
				event = event.Str(lp.GetName(), lp.GetValue())
			}
			switch {
			case m.GetCounter() != nil:
				event = event.Float64("value", m.GetCounter().GetValue())
			case m.GetHistogram() != nil:
				event = event.Uint64("count", m.GetHistogram().GetSampleCount()).Float64("sum", m.GetHistogram().GetSampleSum())
			}
			event.Msg("metrics")
		}
	}
}
