// Package domain contains the core business entities for VibeVault.
package domain

// Playlist is the aggregate root for the playlist/song graph.
// A playlist exclusively owns its songs: a song has no identity outside its
// playlist and never survives it. All song mutation goes through the
// playlist service, never through a top-level song handle.
type Playlist struct {
	// ID is the unique identifier for the playlist (auto-generated).
	ID int64 `json:"id"`

	// Name is the playlist's display name. Must be non-empty.
	Name string `json:"name"`

	// OwnerID references the owning user. Playlists hold a weak reference
	// to their owner; deleting a playlist never touches the user.
	OwnerID int64 `json:"owner_id"`

	// OwnerUsername is the owner's username, denormalised for reads so the
	// API surface never exposes user ids.
	OwnerUsername string `json:"owner_username"`

	// Songs are the songs in this playlist, ordered by id.
	Songs []Song `json:"songs"`
}

// NewPlaylist creates a playlist owned by the given user with no songs.
func NewPlaylist(name string, owner *User) *Playlist {
	return &Playlist{
		Name:          name,
		OwnerID:       owner.ID,
		OwnerUsername: owner.Username,
		Songs:         []Song{},
	}
}

// FindSong returns the song with the given id, or nil if the playlist does
// not contain it.
func (p *Playlist) FindSong(songID int64) *Song {
	for i := range p.Songs {
		if p.Songs[i].ID == songID {
			return &p.Songs[i]
		}
	}
	return nil
}

// Song is an entry in a playlist. The back-reference to the playlist is
// kept for storage and maintained by the playlist repository; the read
// surface only ever shows songs embedded in their playlist.
type Song struct {
	// ID is the unique identifier for the song (auto-generated).
	ID int64 `json:"id"`

	// Title of the song. Must be non-empty.
	Title string `json:"title"`

	// Artist of the song. Must be non-empty.
	Artist string `json:"artist"`

	// DurationInSeconds is the song length. Must be >= 0.
	DurationInSeconds int `json:"duration_in_seconds"`

	// PlaylistID references the owning playlist.
	PlaylistID int64 `json:"playlist_id"`
}
