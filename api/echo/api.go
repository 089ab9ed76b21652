//nolint:varnamelen
package echo

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pilab-dev/twitched-link/domain"
	"github.com/pilab-dev/twitched-link/errors"
	"github.com/pilab-dev/twitched-link/log"
	"github.com/pilab-dev/twitched-link/pairing"
)

// Pairing is the device pairing flow served under /link.
type Pairing interface {
	CreateCode(ctx context.Context, deviceType, deviceID string, protocolVersion int) (string, error)
	GetStatus(ctx context.Context, deviceType, deviceID string) (domain.LinkStatus, error)
	AuthorizationURL(ctx context.Context, code, redirectURL string) (string, error)
	SubmitToken(ctx context.Context, code, rawToken string) error
	ExchangeAuthorizationCode(ctx context.Context, redirectURL, authCode, code string) bool
}

// LinkAPI serves the pairing endpoints.
type LinkAPI struct {
	pairing Pairing
	logger  log.Logger
}

func NewLinkAPI(p Pairing, logger log.Logger) *LinkAPI {
	return &LinkAPI{pairing: p, logger: logger}
}

// RegisterRoutes registers the pairing routes.
func (la *LinkAPI) RegisterRoutes(e *echo.Echo) {
	e.GET("/link/id", la.LinkIDHandler)
	e.GET("/link/status", la.LinkStatusHandler)
	e.POST("/link/token", la.LinkTokenHandler)
	e.GET(CallbackPath, la.CompleteHandler)
	e.GET("/link/:code", la.AuthorizeHandler)
}

type linkIDResponse struct {
	ID      string `json:"id"`
	Version int    `json:"version"`
}

// LinkIDHandler issues a pairing code for the device named by the type and
// id query parameters.
func (la *LinkAPI) LinkIDHandler(c echo.Context) error {
	ctx := c.Request().Context()
	version := pairing.ProtocolVersionFromHeader(c.Request().Header.Get(pairing.VersionHeader))

	code, err := la.pairing.CreateCode(ctx, c.QueryParam("type"), c.QueryParam("id"), version)
	if err != nil {
		return la.fail(c, err)
	}

	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return c.JSON(http.StatusOK, linkIDResponse{ID: code, Version: version})
}

// LinkStatusHandler is polled by the device until the pairing completes.
func (la *LinkAPI) LinkStatusHandler(c echo.Context) error {
	status, err := la.pairing.GetStatus(c.Request().Context(), c.QueryParam("type"), c.QueryParam("id"))
	if err != nil {
		return la.fail(c, err)
	}

	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return c.JSON(http.StatusOK, status)
}

type linkTokenRequest struct {
	Token string `json:"token"`
	ID    string `json:"id"`
}

// LinkTokenHandler receives the token of an implicit grant from the
// callback page.
func (la *LinkAPI) LinkTokenHandler(c echo.Context) error {
	var req linkTokenRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errors.NewInvalidRequest("Invalid body"))
	}

	if err := la.pairing.SubmitToken(c.Request().Context(), req.ID, req.Token); err != nil {
		return la.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// AuthorizeHandler sends the browser to the platform's authorize page for
// the entered code.
func (la *LinkAPI) AuthorizeHandler(c echo.Context) error {
	code := c.Param("code")

	target, err := la.pairing.AuthorizationURL(c.Request().Context(), code, RedirectURL(c))
	if err != nil {
		return la.fail(c, err)
	}
	return c.Redirect(http.StatusFound, target)
}

// CompleteHandler is the OAuth redirect target. Authorization code callbacks
// are exchanged here; implicit grant callbacks carry the token in the URL
// fragment, so they get a page that posts it to /link/token.
func (la *LinkAPI) CompleteHandler(c echo.Context) error {
	state := pairing.NormalizeCode(c.QueryParam("state"))

	if c.QueryParam("error") != "" {
		return c.JSON(http.StatusBadRequest, errors.NewAccessDenied(c.QueryParam("error_description"), state))
	}

	authCode := c.QueryParam("code")
	if authCode == "" {
		return c.HTML(http.StatusOK, implicitCallbackPage)
	}

	if !la.pairing.ExchangeAuthorizationCode(c.Request().Context(), RedirectURL(c), authCode, state) {
		return c.JSON(http.StatusBadRequest, errors.NewAccessDenied("Failed to link device", state))
	}
	return c.HTML(http.StatusOK, linkedPage)
}

func (la *LinkAPI) fail(c echo.Context, err error) error {
	return respondError(c, la.logger, err)
}

// respondError maps service errors onto HTTP responses.
func respondError(c echo.Context, logger log.Logger, err error) error {
	switch {
	case errors.Is(err, errors.ErrInvalidRequest):
		return c.JSON(http.StatusBadRequest, errors.NewInvalidRequest(strings.TrimPrefix(err.Error(), "invalid request: ")))
	case errors.Is(err, errors.ErrNotFound):
		return c.JSON(http.StatusNotFound, errors.NewNotFound("Link id not found"))
	case errors.Is(err, errors.ErrMalformedRecord):
		logger.Error(c.Request().Context(), "Corrupt pairing state", err)
		return c.JSON(http.StatusInternalServerError, errors.NewServerError("Invalid token json"))
	case errors.Is(err, errors.ErrUpstreamUnavailable):
		return c.JSON(http.StatusBadGateway, errors.NewTemporarilyUnavailable("Upstream unavailable"))
	default:
		logger.Error(c.Request().Context(), "Request failed", err)
		return c.JSON(http.StatusServiceUnavailable, errors.NewTemporarilyUnavailable("Try again later"))
	}
}

const linkedPage = `<!DOCTYPE html>
<html><head><title>Linked</title></head>
<body><p>Your device is linked. You can close this page.</p></body></html>
`

const implicitCallbackPage = `<!DOCTYPE html>
<html><head><title>Linking</title></head>
<body><p id="msg">Linking your device...</p>
<script>
var p = new URLSearchParams(window.location.hash.substring(1));
fetch("/link/token", {
  method: "POST",
  headers: {"Content-Type": "application/json"},
  body: JSON.stringify({token: p.get("access_token"), id: p.get("state")})
}).then(function (r) {
  document.getElementById("msg").textContent = r.ok
    ? "Your device is linked. You can close this page."
    : "Linking failed. Enter the code again.";
});
</script></body></html>
`
