package session

import "errors"

var (
	// ErrUserNotInVoice is returned when the requesting user has no voice state.
	ErrUserNotInVoice = errors.New("user is not connected to a voice channel")

	// ErrNotConnected is returned for operations on a guild with no session.
	ErrNotConnected = errors.New("not connected to a voice channel")

	// ErrNothingPlaying is returned when an operation needs a bound source.
	ErrNothingPlaying = errors.New("nothing is currently playing")

	// ErrSuperseded marks a play call whose resolution was overtaken by a
	// newer request for the same guild. Callers should drop it silently.
	ErrSuperseded = errors.New("superseded by a newer request")
)
