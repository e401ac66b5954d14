// Package router decides where a navigation ends up given the current session, and
// prepares the store for the page being entered.
package router

import (
	"context"
	"strings"

	"github.com/jrsteele09/bizdesk/api"
	"github.com/jrsteele09/bizdesk/internal/errors"
	"github.com/jrsteele09/bizdesk/store"
	"github.com/rs/zerolog/log"
)

// Decision is the outcome of a navigation
type Decision struct {
	Requested  string
	Path       string
	Redirected bool
}

type Guard struct {
	client *api.Client
	store  *store.Store
}

func NewGuard(client *api.Client, s *store.Store) *Guard {
	return &Guard{client: client, store: s}
}

// Resolve applies the route rules to path:
//   - /login always goes to /
//   - a protected route without a token goes to /
//   - / with a token goes to /dashboard
//
// The session's current token is forwarded to the api client without being stored
// again.
func (g *Guard) Resolve(path string) (Decision, error) {
	requested := normalize(path)
	if !knownRoutes[requested] {
		return Decision{}, errors.Wrapf(errors.ErrUnknownRoute, "%s", path)
	}

	target := requested
	if alias, ok := aliases[target]; ok {
		target = alias
	}

	token := g.client.Session().Reapply()
	authRequired := !publicRoutes[target]

	log.Debug().
		Str("path", target).
		Bool("token_exists", token != "").
		Bool("auth_required", authRequired).
		Msg("router guard")

	switch {
	case authRequired && token == "":
		log.Debug().Msg("redirecting to login, no token")
		target = RouteLogin
	case token != "" && target == RouteLogin:
		log.Debug().Msg("redirecting to dashboard, has token")
		target = RouteDashboard
	}

	return Decision{Requested: requested, Path: target, Redirected: target != requested}, nil
}

// Navigate resolves path and loads the data the destination page shows. A load
// failure is returned alongside the decision; the page is still entered and the
// store carries the error message.
func (g *Guard) Navigate(ctx context.Context, path string) (Decision, error) {
	decision, err := g.Resolve(path)
	if err != nil {
		return decision, err
	}
	if publicRoutes[decision.Path] {
		return decision, nil
	}

	if err := g.store.InitializeStore(ctx); err != nil {
		log.Warn().Err(err).Str("path", decision.Path).Msg("failed to load page data")
		return decision, err
	}
	if decision.Path == RouteItems {
		if err := g.store.FetchItems(ctx); err != nil {
			return decision, err
		}
	}
	return decision, nil
}

func normalize(path string) string {
	if path == "" {
		return RouteLogin
	}
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	return path
}
