package auth

import "github.com/vibevault/vibevault/internal/domain"

// The authorization policy is a pure function of (principal, target).
// Reads are always permitted, including anonymous, so no read rule
// appears here. The 401-vs-403 split is decided elsewhere: the request
// boundary returns 401 when no principal exists on a protected route, and
// only consults this policy once a principal is present.

// CanModifyPlaylist reports whether the principal may mutate the given
// playlist (add song, remove song, delete, copy). Owners and admins may.
func CanModifyPlaylist(p Principal, playlist *domain.Playlist) bool {
	return p.Username == playlist.OwnerUsername || p.IsAdmin()
}
