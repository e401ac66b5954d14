package api

import (
	"context"
	"fmt"

	"github.com/jrsteele09/bizdesk/internal/errors"
	"github.com/rs/zerolog/log"
)

const refreshFlightKey = "refresh"

// refreshAccessToken obtains a new access token with the stored refresh token.
// staleToken is the access token the failed request carried; when the session already
// holds a different one, another request has refreshed and nothing is done.
// Concurrent callers share a single in-flight refresh. On any failure the session is
// cleared so the next navigation lands on the login page.
func (c *Client) refreshAccessToken(ctx context.Context, staleToken string) error {
	_, err, shared := c.refreshGroup.Do(refreshFlightKey, func() (any, error) {
		if current := c.session.GetAuthToken(); current != "" && current != staleToken {
			return nil, nil
		}
		// The refresh outlives any single waiter's cancellation.
		err := c.refresh(context.WithoutCancel(ctx))
		c.metrics.observeRefresh(err)
		return nil, err
	})
	if shared {
		log.Debug().Msg("joined in-flight token refresh")
	}
	return err
}

func (c *Client) refresh(ctx context.Context) error {
	refreshToken := c.session.GetRefreshToken()
	if refreshToken == "" {
		c.clearSession()
		return errors.ErrNoRefreshToken
	}

	pair, err := c.Auth.Refresh(ctx, refreshToken)
	if err != nil {
		c.clearSession()
		return fmt.Errorf("[api refresh] %w", err)
	}
	if pair.Access == "" {
		c.clearSession()
		return fmt.Errorf("[api refresh] response carried no access token: %w", errors.ErrUnauthenticated)
	}

	if err := c.session.SetTokens(pair.Access, pair.Refresh); err != nil {
		return fmt.Errorf("[api refresh] %w", err)
	}
	log.Debug().Bool("rotated", pair.Refresh != "").Msg("access token refreshed")
	return nil
}

func (c *Client) clearSession() {
	if err := c.session.Clear(); err != nil {
		log.Err(err).Msg("failed to clear session after refresh failure")
	}
}
