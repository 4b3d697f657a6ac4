package duplex

import "errors"

var (
	// ErrAlreadyConnected means Connect was called while a session is active.
	ErrAlreadyConnected = errors.New("duplex: session already active")

	// ErrNotOpen means a send hit a closed or never-opened session.
	ErrNotOpen = errors.New("duplex: session is not open")
)
