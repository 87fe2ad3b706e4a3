package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/vibevault/vibevault/internal/domain"
	"github.com/vibevault/vibevault/internal/repository"
)

// playlistRepository implements repository.PlaylistRepository for PostgreSQL.
//
// Mutations lock the playlist row with SELECT ... FOR UPDATE so a
// concurrent delete serialises against in-flight song operations; the
// loser observes the row as gone and fails with not-found.
type playlistRepository struct {
	db *DB
}

// NewPlaylistRepository creates a new PostgreSQL playlist repository.
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

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list playlists: %w", err)
	}

	playlists, byID, err := scanPlaylists(rows)
	if err != nil {
		return nil, err
	}
	if len(playlists) == 0 {
		return playlists, nil
	}

	songRows, err := r.db.Pool.Query(ctx, `
		SELECT id, title, artist, duration_in_seconds, playlist_id
		FROM songs
		ORDER BY playlist_id, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list songs: %w", err)
	}

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
		WHERE p.id = $1
	`

	playlist := &domain.Playlist{Songs: []domain.Song{}}
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
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

	songRows, err := r.db.Pool.Query(ctx, `
		SELECT id, title, artist, duration_in_seconds, playlist_id
		FROM songs
		WHERE playlist_id = $1
		ORDER BY id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get songs: %w", err)
	}

	if err := attachSongs(songRows, map[int64]*domain.Playlist{id: playlist}); err != nil {
		return nil, err
	}

	return playlist, nil
}

// Create inserts a playlist and any songs it already carries.
func (r *playlistRepository) Create(ctx context.Context, playlist *domain.Playlist) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO playlists (name, owner_id) VALUES ($1, $2) RETURNING id`,
			playlist.Name, playlist.OwnerID,
		).Scan(&playlist.ID)
		if err != nil {
			return fmt.Errorf("failed to create playlist: %w", err)
		}

		for i := range playlist.Songs {
			song := &playlist.Songs[i]
			song.PlaylistID = playlist.ID
			err := tx.QueryRow(ctx,
				`INSERT INTO songs (title, artist, duration_in_seconds, playlist_id)
				 VALUES ($1, $2, $3, $4) RETURNING id`,
				song.Title, song.Artist, song.DurationInSeconds, playlist.ID,
			).Scan(&song.ID)
			if err != nil {
				return fmt.Errorf("failed to create song: %w", err)
			}
		}

		return nil
	})
}

// AddSong appends a song to the playlist and assigns its id.
func (r *playlistRepository) AddSong(ctx context.Context, playlistID int64, song *domain.Song) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		if err := lockPlaylistTx(ctx, tx, playlistID); err != nil {
			return err
		}

		err := tx.QueryRow(ctx,
			`INSERT INTO songs (title, artist, duration_in_seconds, playlist_id)
			 VALUES ($1, $2, $3, $4) RETURNING id`,
			song.Title, song.Artist, song.DurationInSeconds, playlistID,
		).Scan(&song.ID)
		if err != nil {
			return fmt.Errorf("failed to add song: %w", err)
		}
		song.PlaylistID = playlistID

		return nil
	})
}

// RemoveSong deletes the song, which must belong to the given playlist.
func (r *playlistRepository) RemoveSong(ctx context.Context, playlistID, songID int64) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		if err := lockPlaylistTx(ctx, tx, playlistID); err != nil {
			return err
		}

		tag, err := tx.Exec(ctx,
			`DELETE FROM songs WHERE id = $1 AND playlist_id = $2`,
			songID, playlistID,
		)
		if err != nil {
			return fmt.Errorf("failed to remove song: %w", err)
		}
		if tag.RowsAffected() == 0 {
			// Absent, or belongs to a different playlist.
			return domain.ErrSongNotFound
		}

		return nil
	})
}

// Delete removes the playlist and cascades to its songs atomically.
func (r *playlistRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		if err := lockPlaylistTx(ctx, tx, id); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `DELETE FROM songs WHERE playlist_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete songs: %w", err)
		}

		tag, err := tx.Exec(ctx, `DELETE FROM playlists WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete playlist: %w", err)
		}
		if tag.RowsAffected() == 0 {
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
		WHERE p.name ILIKE '%' || $1 || '%'
		ORDER BY p.id
	`

	rows, err := r.db.Pool.Query(ctx, query, keyword)
	if err != nil {
		return nil, fmt.Errorf("failed to search playlists: %w", err)
	}

	playlists, byID, err := scanPlaylists(rows)
	if err != nil {
		return nil, err
	}
	if len(playlists) == 0 {
		return playlists, nil
	}

	ids := make([]int64, 0, len(playlists))
	for _, p := range playlists {
		ids = append(ids, p.ID)
	}

	songRows, err := r.db.Pool.Query(ctx, `
		SELECT id, title, artist, duration_in_seconds, playlist_id
		FROM songs
		WHERE playlist_id = ANY($1)
		ORDER BY playlist_id, id
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get songs: %w", err)
	}

	if err := attachSongs(songRows, byID); err != nil {
		return nil, err
	}

	return playlists, nil
}

// lockPlaylistTx locks the playlist row for the duration of the transaction.
// Returns domain.ErrPlaylistNotFound if the row does not exist.
func lockPlaylistTx(ctx context.Context, tx pgx.Tx, id int64) error {
	var found int64
	err := tx.QueryRow(ctx, `SELECT id FROM playlists WHERE id = $1 FOR UPDATE`, id).Scan(&found)
	if err != nil {
		if isNoRows(err) {
			return domain.ErrPlaylistNotFound
		}
		return fmt.Errorf("failed to lock playlist: %w", err)
	}
	return nil
}

// scanPlaylists reads playlist header rows and returns them in query order
// together with an id index for song attachment.
func scanPlaylists(rows pgx.Rows) ([]*domain.Playlist, map[int64]*domain.Playlist, error) {
	defer rows.Close()

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
func attachSongs(rows pgx.Rows, byID map[int64]*domain.Playlist) error {
	defer rows.Close()

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
