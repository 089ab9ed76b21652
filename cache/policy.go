package cache

import (
	"strings"

	"github.com/pilab-dev/twitched-link/domain"
)

// ContentPolicy may rewrite a snapshot before it is cached. Apply reports
// whether the snapshot was changed.
type ContentPolicy interface {
	Apply(s *domain.StreamSnapshot) bool
}

// BlockRule hides streams of UserID (any user when empty) whose title
// contains TitleContains, case-insensitively. Matching streams are cached as
// offline with Label prepended to the title and used as the type.
type BlockRule struct {
	UserID        string
	TitleContains string
	Label         string
}

func (r BlockRule) matches(s *domain.StreamSnapshot) bool {
	if r.TitleContains == "" {
		return false
	}
	if r.UserID != "" && r.UserID != s.UserID {
		return false
	}
	return strings.Contains(strings.ToUpper(s.Title), strings.ToUpper(r.TitleContains))
}

// RulePolicy applies the first matching rule.
type RulePolicy []BlockRule

func (p RulePolicy) Apply(s *domain.StreamSnapshot) bool {
	for _, r := range p {
		if !r.matches(s) {
			continue
		}
		s.Online = false
		s.Title = r.Label + " | " + s.Title
		s.Type = r.Label
		return true
	}
	return false
}

// DefaultContentPolicy blocks rights-restricted broadcasts that cannot be
// played back on devices.
var DefaultContentPolicy = RulePolicy{
	{UserID: "168843586", TitleContains: "NFL", Label: "DRM Stream"},
}
