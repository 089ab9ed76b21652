package domain

import "fmt"

// FollowKind separates followed channels from followed games.
type FollowKind int

const (
	FollowChannel FollowKind = iota
	FollowGame
)

func (k FollowKind) String() string {
	switch k {
	case FollowChannel:
		return "channel"
	case FollowGame:
		return "game"
	default:
		return fmt.Sprintf("FollowKind(%d)", int(k))
	}
}

// ParseFollowKind accepts "channel" or "game".
func ParseFollowKind(s string) (FollowKind, error) {
	switch s {
	case "channel", "":
		return FollowChannel, nil
	case "game":
		return FollowGame, nil
	default:
		return 0, fmt.Errorf("unknown follow kind %q", s)
	}
}
