package domain

// StreamSnapshot is a point-in-time copy of a user's live stream state.
// Offline snapshots are cached too, so a repeated lookup for an offline user
// does not go back upstream.
type StreamSnapshot struct {
	ID           string    `json:"id,omitempty"`
	UserID       string    `json:"user_id,omitempty"`
	UserName     *UserName `json:"user_name,omitempty"`
	GameID       string    `json:"game_id,omitempty"`
	Type         string    `json:"type,omitempty"`
	Title        string    `json:"title,omitempty"`
	ViewerCount  int64     `json:"viewer_count,omitempty"`
	StartedAt    string    `json:"started_at,omitempty"`
	Language     string    `json:"language,omitempty"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	Online       bool      `json:"online"`
}

// Login returns the user login or "" when the snapshot carries no identity.
func (s *StreamSnapshot) Login() string {
	if s == nil || s.UserName == nil {
		return ""
	}
	return s.UserName.Login
}

// OfflineSnapshot builds the placeholder written for a user who is not live.
func OfflineSnapshot(userID string) StreamSnapshot {
	return StreamSnapshot{UserID: userID, Online: false}
}
