package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vibevault/vibevault/internal/domain"
	"github.com/vibevault/vibevault/internal/repository"
)

// playlistRepository implements repository.PlaylistRepository for SQLite.
//
// The playlist is the aggregate root: every mutation here runs inside a
// single transaction and re-checks the playlist row within it, so a racing
// delete can never leave a song behind.
type playlistRepository struct {
	db *DB
}

// NewPlaylistRepository creates a new SQLite playlist repository.
func NewPlaylistRepository(db *DB) repository.PlaylistRepository {
	return &playlistRepository{db: db}
}

const playlistColumns = `p.id, p.name, p.owner_id, u.username`

// ListAll returns every playlist with its songs embedded, ordered by id.
func (r *playlistRepository) ListAll(ctx context.Context) ([]*domain.Playlist, error) {
	query := `
		SELECT ` + playlistColumns + `
		FROM playlists p
		JOIN users u ON u.id = p.owner_id
		ORDER BY p.id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list playlists: %w", err)
	}
	defer rows.Close()

	playlists, byID, err := scanPlaylists(rows)
	if err != nil {
		return nil, err
	}
	if len(playlists) == 0 {
		return playlists, nil
	}

	songRows, err := r.db.QueryContext(ctx, `
		SELECT id, title, artist, duration_in_seconds, playlist_id
		FROM songs
		ORDER BY playlist_id, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list songs: %w", err)
	}
	defer songRows.Close()

	if err := attachSongs(songRows, byID); err != nil {
		return nil, err
	}

	return playlists, nil
}

// GetByID retrieves a playlist with its songs.
func (r *playlistRepository) GetByID(ctx context.Context, id int64) (*domain.Playlist, error) {
	query := `
		SELECT ` + playlistColumns + `
		FROM playlists p
		JOIN users u ON u.id = p.owner_id
		WHERE p.id = ?
	`

	playlist := &domain.Playlist{Songs: []domain.Song{}}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&playlist.ID,
		&playlist.Name,
		&playlist.OwnerID,
		&playlist.OwnerUsername,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrPlaylistNotFound
		}
		return nil, fmt.Errorf("failed to get playlist: %w", err)
	}

	songRows, err := r.db.QueryContext(ctx, `
		SELECT id, title, artist, duration_in_seconds, playlist_id
		FROM songs
		WHERE playlist_id = ?
		ORDER BY id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get songs: %w", err)
	}
	defer songRows.Close()

	if err := attachSongs(songRows, map[int64]*domain.Playlist{id: playlist}); err != nil {
		return nil, err
	}

	return playlist, nil
}

// Create inserts a playlist and any songs it already carries.
func (r *playlistRepository) Create(ctx context.Context, playlist *domain.Playlist) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`INSERT INTO playlists (name, owner_id) VALUES (?, ?)`,
			playlist.Name, playlist.OwnerID,
		)
		if err != nil {
			return fmt.Errorf("failed to create playlist: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert ID: %w", err)
		}
		playlist.ID = id

		for i := range playlist.Songs {
			song := &playlist.Songs[i]
			song.PlaylistID = id
			result, err := tx.ExecContext(ctx,
				`INSERT INTO songs (title, artist, duration_in_seconds, playlist_id) VALUES (?, ?, ?, ?)`,
				song.Title, song.Artist, song.DurationInSeconds, id,
			)
			if err != nil {
				return fmt.Errorf("failed to create song: %w", err)
			}
			songID, err := result.LastInsertId()
			if err != nil {
				return fmt.Errorf("failed to get last insert ID: %w", err)
			}
			song.ID = songID
		}

		return nil
	})
}

// AddSong appends a song to the playlist and assigns its id.
func (r *playlistRepository) AddSong(ctx context.Context, playlistID int64, song *domain.Song) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		// Re-read inside the transaction: a concurrent delete must make this
		// fail with not-found instead of inserting an orphan song.
		if err := playlistExistsTx(ctx, tx, playlistID); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx,
			`INSERT INTO songs (title, artist, duration_in_seconds, playlist_id) VALUES (?, ?, ?, ?)`,
			song.Title, song.Artist, song.DurationInSeconds, playlistID,
		)
		if err != nil {
			return fmt.Errorf("failed to add song: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert ID: %w", err)
		}
		song.ID = id
		song.PlaylistID = playlistID

		return nil
	})
}

// RemoveSong deletes the song, which must belong to the given playlist.
func (r *playlistRepository) RemoveSong(ctx context.Context, playlistID, songID int64) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := playlistExistsTx(ctx, tx, playlistID); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx,
			`DELETE FROM songs WHERE id = ? AND playlist_id = ?`,
			songID, playlistID,
		)
		if err != nil {
			return fmt.Errorf("failed to remove song: %w", err)
		}

		rowsAffected, _ := result.RowsAffected()
		if rowsAffected == 0 {
			// Absent, or belongs to a different playlist.
			return domain.ErrSongNotFound
		}

		return nil
	})
}

// Delete removes the playlist and cascades to its songs atomically.
func (r *playlistRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM songs WHERE playlist_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete songs: %w", err)
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM playlists WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete playlist: %w", err)
		}

		rowsAffected, _ := result.RowsAffected()
		if rowsAffected == 0 {
			return domain.ErrPlaylistNotFound
		}

		return nil
	})
}

// SearchByName returns playlists whose name contains the keyword
// case-insensitively, ordered by id.
func (r *playlistRepository) SearchByName(ctx context.Context, keyword string) ([]*domain.Playlist, error) {
	query := `
		SELECT ` + playlistColumns + `
		FROM playlists p
		JOIN users u ON u.id = p.owner_id
		WHERE LOWER(p.name) LIKE '%' || LOWER(?) || '%'
		ORDER BY p.id
	`

	rows, err := r.db.QueryContext(ctx, query, keyword)
	if err != nil {
		return nil, fmt.Errorf("failed to search playlists: %w", err)
	}
	defer rows.Close()

	playlists, byID, err := scanPlaylists(rows)
	if err != nil {
		return nil, err
	}
	if len(playlists) == 0 {
		return playlists, nil
	}

	for _, p := range playlists {
		songRows, err := r.db.QueryContext(ctx, `
			SELECT id, title, artist, duration_in_seconds, playlist_id
			FROM songs
			WHERE playlist_id = ?
			ORDER BY id
		`, p.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get songs: %w", err)
		}
		if err := attachSongs(songRows, byID); err != nil {
			songRows.Close()
			return nil, err
		}
		songRows.Close()
	}

	return playlists, nil
}

// playlistExistsTx verifies the playlist row inside the given transaction.
func playlistExistsTx(ctx context.Context, tx *sql.Tx, id int64) error {
	var found int64
	err := tx.QueryRowContext(ctx, `SELECT id FROM playlists WHERE id = ?`, id).Scan(&found)
	if err != nil {
		if isNoRows(err) {
			return domain.ErrPlaylistNotFound
		}
		return fmt.Errorf("failed to check playlist existence: %w", err)
	}
	return nil
}

// scanPlaylists reads playlist header rows and returns them in query order
// together with an id index for song attachment.
func scanPlaylists(rows *sql.Rows) ([]*domain.Playlist, map[int64]*domain.Playlist, error) {
	playlists := []*domain.Playlist{}
	byID := make(map[int64]*domain.Playlist)

	for rows.Next() {
		p := &domain.Playlist{Songs: []domain.Song{}}
		if err := rows.Scan(&p.ID, &p.Name, &p.OwnerID, &p.OwnerUsername); err != nil {
			return nil, nil, fmt.Errorf("failed to scan playlist: %w", err)
		}
		playlists = append(playlists, p)
		byID[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating playlists: %w", err)
	}

	return playlists, byID, nil
}

// attachSongs scans song rows and appends each to its owning playlist.
func attachSongs(rows *sql.Rows, byID map[int64]*domain.Playlist) error {
	for rows.Next() {
		var s domain.Song
		if err := rows.Scan(&s.ID, &s.Title, &s.Artist, &s.DurationInSeconds, &s.PlaylistID); err != nil {
			return fmt.Errorf("failed to scan song: %w", err)
		}
		if p, ok := byID[s.PlaylistID]; ok {
			p.Songs = append(p.Songs, s)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating songs: %w", err)
	}
	return nil
}

// Ensure playlistRepository implements repository.PlaylistRepository.
var _ repository.PlaylistRepository = (*playlistRepository)(nil)
