package domain

import "fmt"

// EntityKind selects which name namespace a lookup targets.
type EntityKind int

const (
	EntityUser EntityKind = iota
	EntityGame
)

func (k EntityKind) String() string {
	switch k {
	case EntityUser:
		return "user"
	case EntityGame:
		return "game"
	default:
		return fmt.Sprintf("EntityKind(%d)", int(k))
	}
}

// UserName is the cached identity of a user. Game names are cached as the
// bare name string.
type UserName struct {
	DisplayName string `json:"display_name"`
	Login       string `json:"login,omitempty"`
}

// EntityName is a resolved display name for a user or a game.
type EntityName struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Login       string `json:"login,omitempty"`
}
