package ws

import (
	"log/slog"
	"net/http"
	"net/url"
)

// NewCheckOrigin returns a CheckOrigin function for the websocket upgrader.
// Empty origins (non-browser clients) and the configured origin are allowed;
// in development, localhost origins are additionally allowed.
func NewCheckOrigin(allowedOrigin string, isDevelopment bool) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")

		if origin == "" {
			return true
		}

		if allowedOrigin != "" && origin == allowedOrigin {
			return true
		}

		if isDevelopment && isLocalhostOrigin(origin) {
			return true
		}

		slog.Warn("Websocket origin rejected", "origin", origin, "remote_addr", r.RemoteAddr)
		return false
	}
}

func isLocalhostOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := u.Hostname()
	return host == "localhost" || host == "127.0.0.1"
}
