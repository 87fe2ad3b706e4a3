// Package service provides business logic services for VibeVault.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vibevault/vibevault/internal/auth"
	"github.com/vibevault/vibevault/internal/domain"
	"github.com/vibevault/vibevault/internal/repository"
)

// PlaylistService is the aggregate manager for the playlist/song graph.
// It is the only component that mutates playlists or songs: it enforces the
// ownership rules, validates input, and delegates transactional ordering to
// the repository. Authorization is checked before the mutation ever reaches
// storage; existence is reported truthfully because reads are public.
type PlaylistService struct {
	playlists repository.PlaylistRepository
	users     repository.UserRepository
	cache     repository.Cache
	cacheTTL  time.Duration
	logger    zerolog.Logger
}

// NewPlaylistService creates a new PlaylistService.
// cache may be nil to disable read caching.
func NewPlaylistService(
	playlists repository.PlaylistRepository,
	users repository.UserRepository,
	cache repository.Cache,
	cacheTTL time.Duration,
	logger zerolog.Logger,
) *PlaylistService {
	return &PlaylistService{
		playlists: playlists,
		users:     users,
		cache:     cache,
		cacheTTL:  cacheTTL,
		logger:    logger.With().Str("service", "playlist").Logger(),
	}
}

// SongInput contains the data needed to add a song to a playlist.
type SongInput struct {
	Title             string
	Artist            string
	DurationInSeconds int
}

// ListAll returns a snapshot of all playlists with embedded songs.
func (s *PlaylistService) ListAll(ctx context.Context) ([]*domain.Playlist, error) {
	playlists, err := s.playlists.ListAll(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list playlists")
		return nil, fmt.Errorf("%w: %v", domain.ErrInternal, err)
	}
	return playlists, nil
}

// GetByID returns the playlist with its songs.
func (s *PlaylistService) GetByID(ctx context.Context, id int64) (*domain.Playlist, error) {
	if cached := s.cacheGet(ctx, id); cached != nil {
		return cached, nil
	}

	playlist, err := s.playlists.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrPlaylistNotFound) {
			return nil, err
		}
		s.logger.Error().Err(err).Int64("playlist_id", id).Msg("failed to get playlist")
		return nil, fmt.Errorf("%w: %v", domain.ErrInternal, err)
	}

	s.cacheSet(ctx, playlist)
	return playlist, nil
}

// Create inserts a new empty playlist owned by ownerUsername.
func (s *PlaylistService) Create(ctx context.Context, name, ownerUsername string) (*domain.Playlist, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: playlist name must not be empty", domain.ErrValidation)
	}

	owner, err := s.users.GetByUsername(ctx, ownerUsername)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		s.logger.Error().Err(err).Str("username", ownerUsername).Msg("failed to resolve owner")
		return nil, fmt.Errorf("%w: %v", domain.ErrInternal, err)
	}

	playlist := domain.NewPlaylist(name, owner)
	if err := s.playlists.Create(ctx, playlist); err != nil {
		s.logger.Error().Err(err).Str("name", name).Msg("failed to create playlist")
		return nil, fmt.Errorf("%w: %v", domain.ErrInternal, err)
	}

	s.logger.Info().
		Int64("playlist_id", playlist.ID).
		Str("owner", ownerUsername).
		Msg("playlist created")

	return playlist, nil
}

// AddSong appends a new song to the playlist and returns the updated
// playlist. The caller must own the playlist or be an admin.
func (s *PlaylistService) AddSong(ctx context.Context, playlistID int64, input SongInput, caller auth.Principal) (*domain.Playlist, error) {
	if err := validateSongInput(input); err != nil {
		return nil, err
	}

	playlist, err := s.playlists.GetByID(ctx, playlistID)
	if err != nil {
		return nil, s.lookupErr(err, playlistID)
	}
	if !auth.CanModifyPlaylist(caller, playlist) {
		return nil, domain.ErrForbidden
	}

	song := &domain.Song{
		Title:             input.Title,
		Artist:            input.Artist,
		DurationInSeconds: input.DurationInSeconds,
	}

	// The repository re-checks the playlist inside its transaction, so a
	// delete that commits between our read and this call surfaces as
	// not-found rather than an orphan row.
	if err := s.playlists.AddSong(ctx, playlistID, song); err != nil {
		if errors.Is(err, domain.ErrPlaylistNotFound) {
			return nil, err
		}
		s.logger.Error().Err(err).Int64("playlist_id", playlistID).Msg("failed to add song")
		return nil, fmt.Errorf("%w: %v", domain.ErrInternal, err)
	}

	s.cacheInvalidate(ctx, playlistID)

	s.logger.Info().
		Int64("playlist_id", playlistID).
		Int64("song_id", song.ID).
		Str("caller", caller.Username).
		Msg("song added")

	return s.GetByID(ctx, playlistID)
}

// RemoveSong deletes a song, which must belong to the given playlist.
// The caller must own the playlist or be an admin.
func (s *PlaylistService) RemoveSong(ctx context.Context, playlistID, songID int64, caller auth.Principal) error {
	playlist, err := s.playlists.GetByID(ctx, playlistID)
	if err != nil {
		return s.lookupErr(err, playlistID)
	}
	if !auth.CanModifyPlaylist(caller, playlist) {
		return domain.ErrForbidden
	}

	if err := s.playlists.RemoveSong(ctx, playlistID, songID); err != nil {
		if errors.Is(err, domain.ErrPlaylistNotFound) || errors.Is(err, domain.ErrSongNotFound) {
			return err
		}
		s.logger.Error().Err(err).
			Int64("playlist_id", playlistID).
			Int64("song_id", songID).
			Msg("failed to remove song")
		return fmt.Errorf("%w: %v", domain.ErrInternal, err)
	}

	s.cacheInvalidate(ctx, playlistID)

	s.logger.Info().
		Int64("playlist_id", playlistID).
		Int64("song_id", songID).
		Str("caller", caller.Username).
		Msg("song removed")

	return nil
}

// Delete removes the playlist and cascades to its songs.
// The caller must own the playlist or be an admin.
func (s *PlaylistService) Delete(ctx context.Context, playlistID int64, caller auth.Principal) error {
	playlist, err := s.playlists.GetByID(ctx, playlistID)
	if err != nil {
		return s.lookupErr(err, playlistID)
	}
	if !auth.CanModifyPlaylist(caller, playlist) {
		return domain.ErrForbidden
	}

	if err := s.playlists.Delete(ctx, playlistID); err != nil {
		if errors.Is(err, domain.ErrPlaylistNotFound) {
			return err
		}
		s.logger.Error().Err(err).Int64("playlist_id", playlistID).Msg("failed to delete playlist")
		return fmt.Errorf("%w: %v", domain.ErrInternal, err)
	}

	s.cacheInvalidate(ctx, playlistID)

	s.logger.Info().
		Int64("playlist_id", playlistID).
		Str("caller", caller.Username).
		Msg("playlist deleted")

	return nil
}

// Search returns playlists whose name contains the keyword
// case-insensitively.
func (s *PlaylistService) Search(ctx context.Context, keyword string) ([]*domain.Playlist, error) {
	playlists, err := s.playlists.SearchByName(ctx, keyword)
	if err != nil {
		s.logger.Error().Err(err).Str("keyword", keyword).Msg("failed to search playlists")
		return nil, fmt.Errorf("%w: %v", domain.ErrInternal, err)
	}
	return playlists, nil
}

// Copy clones the source playlist into a new playlist named newName, owned
// by the caller. Songs are cloned with fresh ids; mutating the copy never
// touches the source. The caller must be authorized over the source.
func (s *PlaylistService) Copy(ctx context.Context, sourceID int64, newName string, caller auth.Principal) (*domain.Playlist, error) {
	if strings.TrimSpace(newName) == "" {
		return nil, fmt.Errorf("%w: playlist name must not be empty", domain.ErrValidation)
	}

	source, err := s.playlists.GetByID(ctx, sourceID)
	if err != nil {
		return nil, s.lookupErr(err, sourceID)
	}
	if !auth.CanModifyPlaylist(caller, source) {
		return nil, domain.ErrForbidden
	}

	// The copy belongs to the caller, not the source owner: an admin
	// copying someone else's playlist gets a playlist they own.
	owner, err := s.users.GetByUsername(ctx, caller.Username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		s.logger.Error().Err(err).Str("username", caller.Username).Msg("failed to resolve caller")
		return nil, fmt.Errorf("%w: %v", domain.ErrInternal, err)
	}

	clone := domain.NewPlaylist(newName, owner)
	for _, song := range source.Songs {
		clone.Songs = append(clone.Songs, domain.Song{
			Title:             song.Title,
			Artist:            song.Artist,
			DurationInSeconds: song.DurationInSeconds,
		})
	}

	if err := s.playlists.Create(ctx, clone); err != nil {
		s.logger.Error().Err(err).Int64("source_id", sourceID).Msg("failed to copy playlist")
		return nil, fmt.Errorf("%w: %v", domain.ErrInternal, err)
	}

	s.logger.Info().
		Int64("source_id", sourceID).
		Int64("playlist_id", clone.ID).
		Str("owner", caller.Username).
		Msg("playlist copied")

	return clone, nil
}

// lookupErr normalises a playlist read failure.
func (s *PlaylistService) lookupErr(err error, playlistID int64) error {
	if errors.Is(err, domain.ErrPlaylistNotFound) {
		return err
	}
	s.logger.Error().Err(err).Int64("playlist_id", playlistID).Msg("failed to get playlist")
	return fmt.Errorf("%w: %v", domain.ErrInternal, err)
}

// validateSongInput checks the required song fields.
func validateSongInput(input SongInput) error {
	if strings.TrimSpace(input.Title) == "" {
		return fmt.Errorf("%w: song title must not be empty", domain.ErrValidation)
	}
	if strings.TrimSpace(input.Artist) == "" {
		return fmt.Errorf("%w: song artist must not be empty", domain.ErrValidation)
	}
	if input.DurationInSeconds < 0 {
		return fmt.Errorf("%w: song duration must not be negative", domain.ErrValidation)
	}
	return nil
}

// cacheKey is the cache key for a playlist id.
func cacheKey(id int64) string {
	return fmt.Sprintf("playlist:%d", id)
}

// cacheGet returns a cached playlist, or nil on miss or any cache error.
func (s *PlaylistService) cacheGet(ctx context.Context, id int64) *domain.Playlist {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, cacheKey(id))
	if err != nil {
		if !errors.Is(err, repository.ErrCacheMiss) {
			s.logger.Warn().Err(err).Int64("playlist_id", id).Msg("cache get failed")
		}
		return nil
	}
	var playlist domain.Playlist
	if err := json.Unmarshal(raw, &playlist); err != nil {
		s.logger.Warn().Err(err).Int64("playlist_id", id).Msg("corrupt cache entry, dropping")
		_ = s.cache.Delete(ctx, cacheKey(id))
		return nil
	}
	return &playlist
}

// cacheSet stores a playlist. Cache failures are logged, never surfaced.
func (s *PlaylistService) cacheSet(ctx context.Context, playlist *domain.Playlist) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(playlist)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cacheKey(playlist.ID), raw, s.cacheTTL); err != nil {
		s.logger.Warn().Err(err).Int64("playlist_id", playlist.ID).Msg("cache set failed")
	}
}

// cacheInvalidate drops the cached entry for a playlist.
func (s *PlaylistService) cacheInvalidate(ctx context.Context, id int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, cacheKey(id)); err != nil {
		s.logger.Warn().Err(err).Int64("playlist_id", id).Msg("cache invalidate failed")
	}
}
