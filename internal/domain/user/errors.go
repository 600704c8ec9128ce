package user

import "errors"

var (
	// ErrUserNotFound indicates the user doesn't exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrUsernameTaken indicates another user already has the username.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrUnknownRole indicates the role name is not recognised.
	ErrUnknownRole = errors.New("unknown role")
	// ErrInvalidToken indicates an API key did not resolve to a user.
	ErrInvalidToken = errors.New("invalid api key")
	// ErrInvalidInput indicates invalid user input.
	ErrInvalidInput = errors.New("invalid user input")
)
