package domain

import "errors"

// ErrSessionNotFound is returned when a session id, or the contact behind it,
// does not resolve.
var ErrSessionNotFound = errors.New("session not found")

// DefaultPersona is the assistant persona used when nothing else is configured.
const DefaultPersona = "You are an intelligent assistant."
