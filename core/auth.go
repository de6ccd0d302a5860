package core

// AuthContext carries the authentication state of a single request.
// It is produced once per request from the session and threaded into the
// components that need it; nothing reads ambient request state.
type AuthContext struct {
	UserID        string
	Name          string
	Email         string
	Roles         []string
	Authenticated bool
}

func (a AuthContext) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}
