package page

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	clientCookie       = "doc_chat_client"
	clientCookieMaxAge = 30 * 24 * time.Hour
)

// clientID identifies the browser across requests, issuing a new cookie when the
// request carries none
func clientID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(clientCookie); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			return c.Value
		}
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     clientCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int(clientCookieMaxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}
