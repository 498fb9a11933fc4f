package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/sakif/videohub/internal/auth"
)

// stateTTL bounds how long a user may take on Google's consent screen.
const stateTTL = 10 * time.Minute

const (
	loginStateCookie   = "oauth_state"
	channelStateCookie = "channel_state"
)

// cookies sets and clears the cookies used by the browser flows. Secure is
// on whenever the public base URL is https.
type cookies struct {
	secure     bool
	sessionTTL time.Duration
}

func (c cookies) setSession(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(c.sessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c cookies) clearSession(w http.ResponseWriter) {
	c.clear(w, auth.CookieName)
}

// setState stores an OAuth state value, optionally bound to extra data
// (the account a channel is being connected to).
func (c cookies) setState(w http.ResponseWriter, name, state, extra string) {
	value := state
	if extra != "" {
		value = state + "." + extra
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(stateTTL.Seconds()),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// checkState compares the callback's state parameter with the cookie and
// returns the extra data stored with it. The cookie is single-use and is
// cleared either way.
func (c cookies) checkState(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	cookie, err := r.Cookie(name)
	c.clear(w, name)
	if err != nil || cookie.Value == "" {
		return "", false
	}

	state, extra, _ := strings.Cut(cookie.Value, ".")
	if got := r.URL.Query().Get("state"); got == "" || got != state {
		return "", false
	}
	return extra, true
}

func (c cookies) clear(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
