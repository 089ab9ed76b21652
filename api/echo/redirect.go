package echo

import (
	"encoding/json"

	"github.com/labstack/echo/v4"
)

// CallbackPath is where the platform redirects the browser after consent.
const CallbackPath = "/link/complete"

// RedirectURL is the absolute callback URL as seen by the browser. The
// scheme follows X-Forwarded-Proto and Cloudflare's CF-Visitor header.
func RedirectURL(c echo.Context) string {
	scheme := c.Scheme()

	if v := c.Request().Header.Get("CF-Visitor"); v != "" {
		var visitor struct {
			Scheme string `json:"scheme"`
		}
		if err := json.Unmarshal([]byte(v), &visitor); err == nil && visitor.Scheme != "" {
			scheme = visitor.Scheme
		}
	}

	return scheme + "://" + c.Request().Host + CallbackPath
}
