// Package handler provides the HTTP request boundary for VibeVault.
// It owns route classification (public versus protected), request body
// validation, and the single place where domain errors become HTTP
// statuses.
package handler

import "github.com/vibevault/vibevault/internal/domain"

// RegisterRequest is the body of POST /api/auth/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterResponse is the body of a successful registration.
type RegisterResponse struct {
	Message  string `json:"message"`
	Username string `json:"username"`
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the body of a successful login.
type LoginResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

// PlaylistCreateRequest is the body of POST /api/playlists.
type PlaylistCreateRequest struct {
	Name string `json:"name"`
}

// SongCreateRequest is the body of POST /api/playlists/{id}/songs.
type SongCreateRequest struct {
	Title             string `json:"title"`
	Artist            string `json:"artist"`
	DurationInSeconds int    `json:"durationInSeconds"`
}

// SongDTO is the read representation of a song.
type SongDTO struct {
	ID                int64  `json:"id"`
	Title             string `json:"title"`
	Artist            string `json:"artist"`
	DurationInSeconds int    `json:"durationInSeconds"`
}

// PlaylistDTO is the read representation of a playlist. Songs appear only
// embedded here; the song back-reference is never exposed.
type PlaylistDTO struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	OwnerUsername string    `json:"ownerUsername"`
	Songs         []SongDTO `json:"songs"`
}

// toPlaylistDTO converts a domain playlist to its read representation.
func toPlaylistDTO(p *domain.Playlist) PlaylistDTO {
	songs := make([]SongDTO, 0, len(p.Songs))
	for _, s := range p.Songs {
		songs = append(songs, SongDTO{
			ID:                s.ID,
			Title:             s.Title,
			Artist:            s.Artist,
			DurationInSeconds: s.DurationInSeconds,
		})
	}
	return PlaylistDTO{
		ID:            p.ID,
		Name:          p.Name,
		OwnerUsername: p.OwnerUsername,
		Songs:         songs,
	}
}

// toPlaylistDTOs converts a slice of domain playlists.
func toPlaylistDTOs(playlists []*domain.Playlist) []PlaylistDTO {
	dtos := make([]PlaylistDTO, 0, len(playlists))
	for _, p := range playlists {
		dtos = append(dtos, toPlaylistDTO(p))
	}
	return dtos
}
