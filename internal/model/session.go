package model

// A Session is the authenticated state persisted across restarts.
type Session struct {
	User           *User    `json:"user"            codec:"user"`
	WatchedStories []string `json:"watched_stories" codec:"watched_stories"`
}

// Authenticated returns true if a user is signed in.
func (s *Session) Authenticated() bool {
	return s != nil && s.User != nil && s.User.Email != ""
}
