package middleware

import (
	"net/url"
	"strings"

	"github.com/MrEthical07/goAuthClient/guard"
)

// StaticPages is a fixed page mapping for use with a bare decider.
type StaticPages struct {
	SignIn       string
	Unauthorized string
	// ReturnParam defaults to "returnUrl".
	ReturnParam string
}

// RedirectURL implements Pages.
func (p StaticPages) RedirectURL(r guard.Redirect) string {
	switch r.Kind {
	case guard.RedirectSignIn:
		if r.ReturnTo == "" {
			return p.SignIn
		}
		param := p.ReturnParam
		if param == "" {
			param = "returnUrl"
		}
		sep := "?"
		if strings.Contains(p.SignIn, "?") {
			sep = "&"
		}
		return p.SignIn + sep + param + "=" + url.QueryEscape(r.ReturnTo)
	case guard.RedirectUnauthorized:
		return p.Unauthorized
	default:
		return ""
	}
}
