// Package domain contains the core business entities for VibeVault.
package domain

import "errors"

// Domain errors - these represent business rule violations.
// They are distinct from infrastructure errors (database, network, etc.)
// and are mapped to HTTP statuses exactly once, at the request boundary.

var (
	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrDuplicateUsername indicates a user with the same username exists.
	ErrDuplicateUsername = errors.New("username already taken")

	// ErrInvalidCredentials indicates authentication failed.
	// Deliberately does not distinguish unknown user from wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrPlaylistNotFound indicates the requested playlist does not exist.
	ErrPlaylistNotFound = errors.New("playlist not found")

	// ErrSongNotFound indicates the song does not exist or belongs to a
	// different playlist than the one addressed.
	ErrSongNotFound = errors.New("song not found")

	// ErrForbidden indicates an authenticated caller lacks ownership of the
	// target playlist and is not an admin.
	ErrForbidden = errors.New("caller may not modify this playlist")

	// ErrValidation indicates malformed or out-of-range input. Specific
	// failures wrap this sentinel so the boundary can match with errors.Is.
	ErrValidation = errors.New("validation failed")

	// ErrInternal indicates an unplanned failure. The boundary never leaks
	// the underlying cause to clients.
	ErrInternal = errors.New("internal error")
)
