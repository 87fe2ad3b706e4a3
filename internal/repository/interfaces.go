// Package repository defines data access interfaces for VibeVault.
// These interfaces abstract database operations, allowing for different
// implementations (SQLite, PostgreSQL, in-memory for testing) while keeping
// the service layer clean.
package repository

import (
	"context"

	"github.com/vibevault/vibevault/internal/domain"
)

// UserRepository defines the interface for the credential store.
// Implementations report duplicate usernames as domain.ErrDuplicateUsername,
// never as a raw constraint violation.
type UserRepository interface {
	// Create inserts a new user and assigns its id.
	Create(ctx context.Context, user *domain.User) error

	// GetByUsername retrieves a user by exact, case-sensitive username.
	// Returns domain.ErrUserNotFound if absent.
	GetByUsername(ctx context.Context, username string) (*domain.User, error)

	// ExistsByUsername checks if a user with the given username exists.
	ExistsByUsername(ctx context.Context, username string) (bool, error)

	// List returns all users ordered by id. Used by the admin CLI.
	List(ctx context.Context) ([]*domain.User, error)
}

// PlaylistRepository defines the interface for the playlist aggregate store.
// Every mutating method runs inside a single transaction: either all of its
// effects commit, or none do. Methods that address a playlist re-check its
// existence inside that transaction, so a racing delete surfaces as
// domain.ErrPlaylistNotFound and leaves no orphan rows.
type PlaylistRepository interface {
	// ListAll returns every playlist with its songs embedded, ordered by id.
	ListAll(ctx context.Context) ([]*domain.Playlist, error)

	// GetByID retrieves a playlist with its songs.
	// Returns domain.ErrPlaylistNotFound if absent.
	GetByID(ctx context.Context, id int64) (*domain.Playlist, error)

	// Create inserts a playlist and any songs it already carries, assigning
	// ids to all of them. Used for both create and copy.
	Create(ctx context.Context, playlist *domain.Playlist) error

	// AddSong appends a song to the playlist and assigns its id, keeping the
	// back-reference consistent. Returns domain.ErrPlaylistNotFound if the
	// playlist no longer exists at commit time.
	AddSong(ctx context.Context, playlistID int64, song *domain.Song) error

	// RemoveSong deletes the song, which must belong to the given playlist.
	// Returns domain.ErrSongNotFound if it does not, and
	// domain.ErrPlaylistNotFound if the playlist itself is gone.
	RemoveSong(ctx context.Context, playlistID, songID int64) error

	// Delete removes the playlist and cascades to its songs atomically.
	// Returns domain.ErrPlaylistNotFound if absent.
	Delete(ctx context.Context, id int64) error

	// SearchByName returns playlists whose name contains the keyword
	// case-insensitively, ordered by id.
	SearchByName(ctx context.Context, keyword string) ([]*domain.Playlist, error)
}
