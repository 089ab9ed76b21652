package pairing

import (
	"strconv"
	"strings"

	"github.com/pilab-dev/twitched-link/domain"
)

// VersionHeader carries the device client version, e.g. "1.4.2".
const VersionHeader = "X-Twitched-Version"

// authorizationFlowSince is the first client version that handles the
// authorization code flow.
var authorizationFlowSince = []int{1, 4}

// ProtocolVersionFromHeader maps a client version string onto the pairing
// protocol version. Missing or unparsable versions get the implicit flow.
func ProtocolVersionFromHeader(v string) int {
	if compareVersions(parseVersion(v), authorizationFlowSince) >= 0 {
		return domain.ProtocolVersionAuthorization
	}
	return domain.ProtocolVersionImplicit
}

func parseVersion(v string) []int {
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")
	if v == "" {
		return nil
	}

	parts := strings.Split(v, ".")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		// "1.5-beta" compares as 1.5
		if i := strings.IndexFunc(p, func(r rune) bool { return r < '0' || r > '9' }); i >= 0 {
			p = p[:i]
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			break
		}
		out = append(out, n)
	}
	return out
}

func compareVersions(a, b []int) int {
	for i := 0; i < len(a) || i < len(b); i++ {
		var x, y int
		if i < len(a) {
			x = a[i]
		}
		if i < len(b) {
			y = b[i]
		}
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
	}
	return 0
}
