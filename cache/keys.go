// Package cache holds the entity caches that sit in front of the media
// platform API. Every cache is a thin, best effort layer over a
// store.KeyStore: store failures are logged and read as misses.
package cache

import (
	"fmt"
	"strings"
	"time"
)

// Key prefixes. They are concatenated directly with the identifier and must
// stay byte for byte stable, existing deployments hold data under them.
const (
	UserNamePrefix       = "_u_"
	GameNamePrefix       = "_g_"
	StreamPrefix         = "_s_"
	FollowPrefix         = "_f_"
	FollowGamePrefix     = "_fg_"
	FollowTimePrefix     = "_ft_"
	FollowTimeGamePrefix = "_ftg_"
	LinkPrefix           = "_l_"
	TokenPrefix          = "_t_"
	TokenIDPrefix        = "_ti_"
	UserIDPrefix         = "_ui_"
	HelixResponsePrefix  = "_r_"
)

// TTLs
const (
	DefaultTTL = 10 * time.Minute
	HourTTL    = time.Hour
	DayTTL     = 24 * time.Hour
)

// RequestKey composes a key for an endpoint and its parameters as
// "endpoint?p1&p2". A nil parameter is rendered as "null".
func RequestKey(endpoint string, params ...interface{}) string {
	var b strings.Builder
	b.WriteString(endpoint)
	sep := "?"
	for _, p := range params {
		b.WriteString(sep)
		if p == nil {
			b.WriteString("null")
		} else {
			b.WriteString(fmt.Sprint(p))
		}
		sep = "&"
	}
	return b.String()
}

// DeviceKey is where a device's pairing record lives.
func DeviceKey(deviceType, deviceID string) string {
	return RequestKey(LinkPrefix, deviceType, deviceID)
}

// CodeKey maps a bare pairing code to its device key.
func CodeKey(code string) string {
	return RequestKey(LinkPrefix, code)
}

// TokenKey holds the token record of a completed pairing.
func TokenKey(code string) string {
	return RequestKey(TokenPrefix, code)
}

// TokenOwnerKey maps a hashed access token to its owner's user id.
func TokenOwnerKey(tokenHash string) string {
	return TokenIDPrefix + tokenHash
}
