package middleware

import (
	"context"
	"net/http"

	goAuthClient "github.com/MrEthical07/goAuthClient"
	"github.com/MrEthical07/goAuthClient/guard"
	"github.com/go-chi/chi/v5"
)

// UnroutedTarget is the decision target of a request that carries no
// route pattern and was guarded without an explicit target.
const UnroutedTarget = "*"

// Checker is satisfied by *guard.Decider.
type Checker interface {
	Check(ctx context.Context, target string, required ...string) (guard.Decision, error)
}

// Pages maps a redirect intent to a URL. *goAuthClient.Client satisfies it.
type Pages interface {
	RedirectURL(r guard.Redirect) string
}

type decisionContextKey struct{}

// DecisionFromContext returns the decision that admitted the request.
func DecisionFromContext(ctx context.Context) (guard.Decision, bool) {
	d, ok := ctx.Value(decisionContextKey{}).(guard.Decision)
	return d, ok
}

// Guard admits requests whose session holds one of roles, or one of the
// client's allowed roles when roles is empty. The decision target is the
// matched route; see RequireRoles.
func Guard(client *goAuthClient.Client, roles ...string) func(http.Handler) http.Handler {
	return GuardTarget(client, "", roles...)
}

// GuardTarget is Guard with a fixed decision target. An empty target
// falls back to the matched route.
func GuardTarget(client *goAuthClient.Client, target string, roles ...string) func(http.Handler) http.Handler {
	if client == nil {
		return func(http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
			})
		}
	}
	return RequireRolesTarget(client.Decider(), client, target, roles...)
}

// RequireRoles is Guard over an arbitrary checker and page mapping.
//
// The target is the route the request matched: the chi route pattern when
// the middleware runs inside a chi group, else the net/http ServeMux
// pattern, else UnroutedTarget. The raw path is never used, since
// decisions are memoized per target and paths are unbounded.
func RequireRoles(checker Checker, pages Pages, roles ...string) func(http.Handler) http.Handler {
	return RequireRolesTarget(checker, pages, "", roles...)
}

// RequireRolesTarget is RequireRoles with a fixed decision target.
func RequireRolesTarget(checker Checker, pages Pages, target string, roles ...string) func(http.Handler) http.Handler {
	required := append([]string(nil), roles...)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t := target
			if t == "" {
				t = RouteTarget(r)
			}
			dec, err := checker.Check(r.Context(), t, required...)
			if err != nil {
				http.Error(w, "session not ready", http.StatusServiceUnavailable)
				return
			}

			if !dec.Allowed {
				redirect := dec.Redirect
				if redirect.Kind == guard.RedirectSignIn {
					redirect.ReturnTo = r.URL.RequestURI()
				}
				location := ""
				if pages != nil {
					location = pages.RedirectURL(redirect)
				}
				if location == "" {
					http.Error(w, "forbidden", http.StatusForbidden)
					return
				}
				http.Redirect(w, r, location, http.StatusSeeOther)
				return
			}

			ctx := context.WithValue(r.Context(), decisionContextKey{}, dec)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RouteTarget returns the route pattern r matched so far.
func RouteTarget(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	if r.Pattern != "" {
		return r.Pattern
	}
	return UnroutedTarget
}
