package main

import "errors"

// Shared errors used by the reconciliation and storage layers
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrCharacterNotFound = errors.New("character not found")

	// ErrMalformedBatch is returned before any mutation when the caller sent an invalid batch
	ErrMalformedBatch = errors.New("malformed game update batch")
	// ErrRoundAlreadyReconciled is returned when a round id was already committed
	ErrRoundAlreadyReconciled = errors.New("round already reconciled")
)
