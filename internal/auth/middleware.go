package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/vibevault/vibevault/internal/domain"
)

// bearerPrefix is the literal scheme prefix expected in the
// Authorization header, including the trailing space.
const bearerPrefix = "Bearer "

// UserStore is the slice of the credential store the middleware needs to
// resolve a token subject to a persisted user.
type UserStore interface {
	// GetByUsername retrieves a user by username.
	// Returns domain.ErrUserNotFound if absent.
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

// TokenVerifier is the slice of the token service the middleware needs.
type TokenVerifier interface {
	// SubjectOf returns the username claim without validating expiry.
	SubjectOf(token string) (string, error)

	// IsValid reports whether the token verifies for the expected username.
	IsValid(token, expectedUsername string) bool
}

// Middleware returns a handler that authenticates requests carrying a
// bearer token. It never rejects a request: every failure mode passes the
// request through unauthenticated, because the 401 decision belongs to the
// request boundary, which knows whether the route is public. A bad header
// on a public route must not short-circuit the request.
func Middleware(users UserStore, tokens TokenVerifier, logger zerolog.Logger) func(http.Handler) http.Handler {
	logger = logger.With().Str("component", "auth").Logger()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, bearerPrefix) {
				next.ServeHTTP(w, r)
				return
			}
			tok := header[len(bearerPrefix):]

			username, err := tokens.SubjectOf(tok)
			if err != nil {
				logger.Debug().Err(err).Msg("unparseable bearer token, continuing unauthenticated")
				next.ServeHTTP(w, r)
				return
			}

			user, err := users.GetByUsername(r.Context(), username)
			if err != nil {
				logger.Debug().Str("username", username).Msg("token subject unknown, continuing unauthenticated")
				next.ServeHTTP(w, r)
				return
			}

			if !tokens.IsValid(tok, user.Username) {
				logger.Debug().Str("username", username).Msg("invalid or expired token, continuing unauthenticated")
				next.ServeHTTP(w, r)
				return
			}

			// The role comes from the persisted record, never the token.
			principal := Principal{Username: user.Username, Role: user.Role}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}
