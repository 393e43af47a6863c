package goAuthClient

import (
	"context"
	"net/url"
	"strings"

	"github.com/MrEthical07/goAuthClient/guard"
)

// Authorize decides whether the session may open target. required
// defaults to the allow-list. A denial is also handed to the navigator:
// sign-in for signed-out sessions, the unauthorized page otherwise.
func (c *Client) Authorize(ctx context.Context, target string, required ...string) (guard.Decision, error) {
	d, err := c.decider.Check(ctx, target, required...)
	if err != nil {
		return d, err
	}
	if !d.Allowed {
		c.navigate(ctx, d.Redirect)
	}
	return d, nil
}

func (c *Client) observeDecision(ctx context.Context, target string, d guard.Decision) {
	if d.Cached {
		c.metricInc(MetricGuardCacheHit)
	}
	if d.Allowed {
		c.metricInc(MetricGuardAllowed)
		return
	}
	c.metricInc(MetricGuardDenied)
	c.emitAudit(ctx, auditEventGuardDenied, false, c.CurrentUser(), target, nil, func() map[string]string {
		return map[string]string{"redirect": d.Redirect.Kind.String()}
	})
}

// SignInURL returns the sign-in page carrying returnTo in the configured
// query parameter.
func (c *Client) SignInURL(returnTo string) string {
	return withQuery(c.config.Guard.SignInPath, c.config.Guard.ReturnParam, returnTo)
}

// RedirectURL maps a redirect intent to a page path, or "" for none.
func (c *Client) RedirectURL(r guard.Redirect) string {
	switch r.Kind {
	case guard.RedirectSignIn:
		return c.SignInURL(r.ReturnTo)
	case guard.RedirectUnauthorized:
		return c.config.Guard.UnauthorizedPath
	default:
		return ""
	}
}

func withQuery(path, param, value string) string {
	if value == "" || param == "" {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + param + "=" + url.QueryEscape(value)
}
