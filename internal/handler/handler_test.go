package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibevault/vibevault/internal/auth"
	"github.com/vibevault/vibevault/internal/domain"
	"github.com/vibevault/vibevault/internal/metrics"
	"github.com/vibevault/vibevault/internal/service"
	"github.com/vibevault/vibevault/internal/token"
)

// memUserRepo is an in-memory UserRepository for handler tests.
type memUserRepo struct {
	mu     sync.Mutex
	users  map[string]*domain.User
	nextID int64
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]*domain.User), nextID: 1}
}

func (m *memUserRepo) Create(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.Username]; ok {
		return domain.ErrDuplicateUsername
	}
	user.ID = m.nextID
	m.nextID++
	clone := *user
	m.users[user.Username] = &clone
	return nil
}

func (m *memUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[username]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	clone := *user
	return &clone, nil
}

func (m *memUserRepo) ExistsByUsername(_ context.Context, username string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.users[username]
	return ok, nil
}

func (m *memUserRepo) List(_ context.Context) ([]*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.User, 0, len(m.users))
	for _, u := range m.users {
		clone := *u
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// memPlaylistRepo is an in-memory PlaylistRepository for handler tests.
type memPlaylistRepo struct {
	mu         sync.Mutex
	playlists  map[int64]*domain.Playlist
	nextID     int64
	nextSongID int64
}

func newMemPlaylistRepo() *memPlaylistRepo {
	return &memPlaylistRepo{playlists: make(map[int64]*domain.Playlist), nextID: 1, nextSongID: 1}
}

func clonePlaylist(p *domain.Playlist) *domain.Playlist {
	clone := *p
	clone.Songs = make([]domain.Song, len(p.Songs))
	copy(clone.Songs, p.Songs)
	return &clone
}

func (m *memPlaylistRepo) ListAll(_ context.Context) ([]*domain.Playlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Playlist, 0, len(m.playlists))
	for _, p := range m.playlists {
		out = append(out, clonePlaylist(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memPlaylistRepo) GetByID(_ context.Context, id int64) (*domain.Playlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.playlists[id]
	if !ok {
		return nil, domain.ErrPlaylistNotFound
	}
	return clonePlaylist(p), nil
}

func (m *memPlaylistRepo) Create(_ context.Context, playlist *domain.Playlist) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	playlist.ID = m.nextID
	m.nextID++
	for i := range playlist.Songs {
		playlist.Songs[i].ID = m.nextSongID
		m.nextSongID++
		playlist.Songs[i].PlaylistID = playlist.ID
	}
	m.playlists[playlist.ID] = clonePlaylist(playlist)
	return nil
}

func (m *memPlaylistRepo) AddSong(_ context.Context, playlistID int64, song *domain.Song) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.playlists[playlistID]
	if !ok {
		return domain.ErrPlaylistNotFound
	}
	song.ID = m.nextSongID
	m.nextSongID++
	song.PlaylistID = playlistID
	p.Songs = append(p.Songs, *song)
	return nil
}

func (m *memPlaylistRepo) RemoveSong(_ context.Context, playlistID, songID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.playlists[playlistID]
	if !ok {
		return domain.ErrPlaylistNotFound
	}
	for i, s := range p.Songs {
		if s.ID == songID {
			p.Songs = append(p.Songs[:i], p.Songs[i+1:]...)
			return nil
		}
	}
	return domain.ErrSongNotFound
}

func (m *memPlaylistRepo) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.playlists[id]; !ok {
		return domain.ErrPlaylistNotFound
	}
	delete(m.playlists, id)
	return nil
}

func (m *memPlaylistRepo) SearchByName(_ context.Context, keyword string) ([]*domain.Playlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	needle := strings.ToLower(keyword)
	out := make([]*domain.Playlist, 0)
	for _, p := range m.playlists {
		if strings.Contains(strings.ToLower(p.Name), needle) {
			out = append(out, clonePlaylist(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// songCount reports how many stored songs reference the given playlist.
func (m *memPlaylistRepo) songCount(playlistID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range m.playlists {
		for _, s := range p.Songs {
			if s.PlaylistID == playlistID {
				n++
			}
		}
	}
	return n
}

// testEnv wires the full request path: router, middleware, services and
// in-memory repositories.
type testEnv struct {
	handler   http.Handler
	users     *memUserRepo
	playlists *memPlaylistRepo
	userSvc   *service.UserService
	tokens    *token.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := zerolog.Nop()
	userRepo := newMemUserRepo()
	playlistRepo := newMemPlaylistRepo()

	tokens, err := token.NewService("0123456789abcdef0123456789abcdef", time.Hour)
	require.NoError(t, err)

	userSvc := service.NewUserService(userRepo, logger)
	playlistSvc := service.NewPlaylistService(playlistRepo, userRepo, nil, 0, logger)

	router := NewRouter(RouterConfig{
		AuthHandler: NewAuthHandler(AuthConfig{
			UserService:  userSvc,
			TokenService: tokens,
			Logger:       logger,
		}),
		PlaylistHandler: NewPlaylistHandler(PlaylistConfig{
			PlaylistService: playlistSvc,
			Logger:          logger,
		}),
		AuthMiddleware: auth.Middleware(userRepo, tokens, logger),
		Metrics:        metrics.New(),
		MetricsPath:    "/metrics",
		Logger:         logger,
	})

	return &testEnv{
		handler:   router.Handler(),
		users:     userRepo,
		playlists: playlistRepo,
		userSvc:   userSvc,
		tokens:    tokens,
	}
}

// do issues a request against the router. A non-empty token is sent as a
// bearer credential; a nil body sends no payload.
func (e *testEnv) do(t *testing.T, method, path, bearer string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

// register creates a user through the API and returns a login token.
func (e *testEnv) register(t *testing.T, username, password string) string {
	t.Helper()

	rec := e.do(t, http.MethodPost, "/api/auth/register", "", RegisterRequest{Username: username, Password: password})
	require.Equal(t, http.StatusCreated, rec.Code)

	return e.login(t, username, password)
}

func (e *testEnv) login(t *testing.T, username, password string) string {
	t.Helper()

	rec := e.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Username: username, Password: password})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

// registerAdmin creates an admin account directly through the user service
// and returns a token for it.
func (e *testEnv) registerAdmin(t *testing.T, username, password string) string {
	t.Helper()

	_, err := e.userSvc.Register(context.Background(), service.RegisterInput{
		Username: username,
		Password: password,
		Role:     domain.RoleAdmin,
	})
	require.NoError(t, err)

	return e.login(t, username, password)
}

func decodePlaylist(t *testing.T, rec *httptest.ResponseRecorder) PlaylistDTO {
	t.Helper()
	var dto PlaylistDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dto))
	return dto
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/auth/register", "", RegisterRequest{Username: "alice", Password: "pw"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var reg RegisterResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reg))
	assert.Equal(t, "alice", reg.Username)

	// Duplicate registration conflicts
	rec = env.do(t, http.MethodPost, "/api/auth/register", "", RegisterRequest{Username: "alice", Password: "other"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Correct credentials yield a token
	rec = env.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Username: "alice", Password: "pw"})
	require.Equal(t, http.StatusOK, rec.Code)
	var login LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	assert.NotEmpty(t, login.Token)
	assert.Equal(t, "alice", login.Username)

	// Wrong password is unauthorized
	rec = env.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Username: "alice", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/auth/register", "", RegisterRequest{Username: "", Password: "pw"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/auth/register", "", RegisterRequest{Username: "alice", Password: ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateAndReadPlaylist(t *testing.T) {
	env := newTestEnv(t)
	aliceToken := env.register(t, "alice", "pw")

	rec := env.do(t, http.MethodPost, "/api/playlists", aliceToken, PlaylistCreateRequest{Name: "Mix"})
	require.Equal(t, http.StatusCreated, rec.Code)

	created := decodePlaylist(t, rec)
	assert.Equal(t, "Mix", created.Name)
	assert.Equal(t, "alice", created.OwnerUsername)
	assert.Empty(t, created.Songs)
	assert.NotZero(t, created.ID)

	// Anonymous read sees the same playlist
	rec = env.do(t, http.MethodGet, fmt.Sprintf("/api/playlists/%d", created.ID), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodePlaylist(t, rec)
	assert.Equal(t, created, got)

	// Unknown id is 404
	rec = env.do(t, http.MethodGet, "/api/playlists/99999", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Non-numeric id is 404, not 500
	rec = env.do(t, http.MethodGet, "/api/playlists/abc", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListPlaylists(t *testing.T) {
	env := newTestEnv(t)
	aliceToken := env.register(t, "alice", "pw")

	for _, name := range []string{"First", "Second"} {
		rec := env.do(t, http.MethodPost, "/api/playlists", aliceToken, PlaylistCreateRequest{Name: name})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := env.do(t, http.MethodGet, "/api/playlists", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var list []PlaylistDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 2)
	assert.Equal(t, "First", list[0].Name)
	assert.Equal(t, "Second", list[1].Name)
}

func TestAuthDistinction(t *testing.T) {
	env := newTestEnv(t)
	aliceToken := env.register(t, "alice", "pw")
	bobToken := env.register(t, "bob", "pw")

	// No token on a protected route is 401
	rec := env.do(t, http.MethodPost, "/api/playlists", "", PlaylistCreateRequest{Name: "Mix"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Garbage token on a protected route is still 401
	rec = env.do(t, http.MethodPost, "/api/playlists", "not-a-token", PlaylistCreateRequest{Name: "Mix"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// An authenticated non-owner is 403, never 401
	rec = env.do(t, http.MethodPost, "/api/playlists", aliceToken, PlaylistCreateRequest{Name: "Mix"})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodePlaylist(t, rec)

	rec = env.do(t, http.MethodDelete, fmt.Sprintf("/api/playlists/%d", created.ID), bobToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// The playlist is untouched
	rec = env.do(t, http.MethodGet, fmt.Sprintf("/api/playlists/%d", created.ID), "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSongLifecycle(t *testing.T) {
	env := newTestEnv(t)
	aliceToken := env.register(t, "alice", "pw")

	rec := env.do(t, http.MethodPost, "/api/playlists", aliceToken, PlaylistCreateRequest{Name: "Mix"})
	require.Equal(t, http.StatusCreated, rec.Code)
	playlist := decodePlaylist(t, rec)

	rec = env.do(t, http.MethodPost, fmt.Sprintf("/api/playlists/%d/songs", playlist.ID), aliceToken,
		SongCreateRequest{Title: "T", Artist: "A", DurationInSeconds: 180})
	require.Equal(t, http.StatusCreated, rec.Code)

	updated := decodePlaylist(t, rec)
	require.Len(t, updated.Songs, 1)
	song := updated.Songs[0]
	assert.Equal(t, "T", song.Title)
	assert.Equal(t, "A", song.Artist)
	assert.Equal(t, 180, song.DurationInSeconds)
	assert.NotZero(t, song.ID)

	rec = env.do(t, http.MethodDelete, fmt.Sprintf("/api/playlists/%d/songs/%d", playlist.ID, song.ID), aliceToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/api/playlists/%d", playlist.ID), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodePlaylist(t, rec).Songs)
}

func TestAddSongValidation(t *testing.T) {
	env := newTestEnv(t)
	aliceToken := env.register(t, "alice", "pw")

	rec := env.do(t, http.MethodPost, "/api/playlists", aliceToken, PlaylistCreateRequest{Name: "Mix"})
	require.Equal(t, http.StatusCreated, rec.Code)
	playlist := decodePlaylist(t, rec)

	tests := []struct {
		name string
		song SongCreateRequest
	}{
		{"empty title", SongCreateRequest{Title: "", Artist: "A", DurationInSeconds: 10}},
		{"empty artist", SongCreateRequest{Title: "T", Artist: "", DurationInSeconds: 10}},
		{"negative duration", SongCreateRequest{Title: "T", Artist: "A", DurationInSeconds: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, fmt.Sprintf("/api/playlists/%d/songs", playlist.ID), aliceToken, tt.song)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestRemoveSongWrongPlaylist(t *testing.T) {
	env := newTestEnv(t)
	aliceToken := env.register(t, "alice", "pw")

	rec := env.do(t, http.MethodPost, "/api/playlists", aliceToken, PlaylistCreateRequest{Name: "One"})
	require.Equal(t, http.StatusCreated, rec.Code)
	first := decodePlaylist(t, rec)

	rec = env.do(t, http.MethodPost, "/api/playlists", aliceToken, PlaylistCreateRequest{Name: "Two"})
	require.Equal(t, http.StatusCreated, rec.Code)
	second := decodePlaylist(t, rec)

	rec = env.do(t, http.MethodPost, fmt.Sprintf("/api/playlists/%d/songs", first.ID), aliceToken,
		SongCreateRequest{Title: "T", Artist: "A", DurationInSeconds: 60})
	require.Equal(t, http.StatusCreated, rec.Code)
	song := decodePlaylist(t, rec).Songs[0]

	// The song belongs to the first playlist, so removing it via the second is 404
	rec = env.do(t, http.MethodDelete, fmt.Sprintf("/api/playlists/%d/songs/%d", second.ID, song.ID), aliceToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCascadeDelete(t *testing.T) {
	env := newTestEnv(t)
	aliceToken := env.register(t, "alice", "pw")

	rec := env.do(t, http.MethodPost, "/api/playlists", aliceToken, PlaylistCreateRequest{Name: "Doomed"})
	require.Equal(t, http.StatusCreated, rec.Code)
	playlist := decodePlaylist(t, rec)

	for _, title := range []string{"First", "Second"} {
		rec = env.do(t, http.MethodPost, fmt.Sprintf("/api/playlists/%d/songs", playlist.ID), aliceToken,
			SongCreateRequest{Title: title, Artist: "A", DurationInSeconds: 120})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec = env.do(t, http.MethodDelete, fmt.Sprintf("/api/playlists/%d", playlist.ID), aliceToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// No song rows reference the deleted playlist
	assert.Zero(t, env.playlists.songCount(playlist.ID))

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/api/playlists/%d", playlist.ID), "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminOverride(t *testing.T) {
	env := newTestEnv(t)
	aliceToken := env.register(t, "alice", "pw")
	adminToken := env.registerAdmin(t, "root", "rootpw")

	rec := env.do(t, http.MethodPost, "/api/playlists", aliceToken, PlaylistCreateRequest{Name: "Mix"})
	require.Equal(t, http.StatusCreated, rec.Code)
	playlist := decodePlaylist(t, rec)

	rec = env.do(t, http.MethodDelete, fmt.Sprintf("/api/playlists/%d", playlist.ID), adminToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestSearch(t *testing.T) {
	env := newTestEnv(t)
	aliceToken := env.register(t, "alice", "pw")

	for _, name := range []string{"Rock Classics", "Jazz Favorites", "Pop Hits"} {
		rec := env.do(t, http.MethodPost, "/api/playlists", aliceToken, PlaylistCreateRequest{Name: name})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := env.do(t, http.MethodGet, "/api/playlists/search?keyword=favorites", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var results []PlaylistDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "Jazz Favorites", results[0].Name)
}

func TestCopyPlaylist(t *testing.T) {
	env := newTestEnv(t)
	aliceToken := env.register(t, "alice", "pw")
	adminToken := env.registerAdmin(t, "root", "rootpw")

	rec := env.do(t, http.MethodPost, "/api/playlists", aliceToken, PlaylistCreateRequest{Name: "Source"})
	require.Equal(t, http.StatusCreated, rec.Code)
	source := decodePlaylist(t, rec)

	rec = env.do(t, http.MethodPost, fmt.Sprintf("/api/playlists/%d/songs", source.ID), aliceToken,
		SongCreateRequest{Title: "T", Artist: "A", DurationInSeconds: 90})
	require.Equal(t, http.StatusCreated, rec.Code)
	source = decodePlaylist(t, rec)

	// Admin copies alice's playlist and becomes the owner of the copy
	rec = env.do(t, http.MethodPost, fmt.Sprintf("/api/playlists/%d/copy?newName=Cloned", source.ID), adminToken, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	copied := decodePlaylist(t, rec)
	assert.NotEqual(t, source.ID, copied.ID)
	assert.Equal(t, "Cloned", copied.Name)
	assert.Equal(t, "root", copied.OwnerUsername)
	require.Len(t, copied.Songs, 1)
	assert.Equal(t, source.Songs[0].Title, copied.Songs[0].Title)
	assert.NotEqual(t, source.Songs[0].ID, copied.Songs[0].ID)

	// A non-owner without the admin role may not copy
	bobToken := env.register(t, "bob", "pw")
	rec = env.do(t, http.MethodPost, fmt.Sprintf("/api/playlists/%d/copy?newName=Stolen", source.ID), bobToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMalformedBody(t *testing.T) {
	env := newTestEnv(t)
	aliceToken := env.register(t, "alice", "pw")

	req := httptest.NewRequest(http.MethodPost, "/api/playlists", strings.NewReader("{not json"))
	req.Header.Set("Authorization", "Bearer "+aliceToken)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())

	env.do(t, http.MethodGet, "/api/playlists", "", nil)

	rec = env.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "vibevault_http_requests_total")
}

func TestRequestIDHeader(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health", "", nil)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-Id", "fixed-id")
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, "fixed-id", rec.Header().Get("X-Request-Id"))
}
