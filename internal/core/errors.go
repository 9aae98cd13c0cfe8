package core

import (
	"errors"
	"fmt"
)

var (
	ErrAuthRequired    = errors.New("authentication required")
	ErrSessionNotFound = errors.New("session not found")
)

// ValidationError blocks an action at the boundary without any partial effect.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// StoreError is a failed create/list/delete against the store. It is surfaced to the user
// and the session keeps its previous state.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// GenerationError is a failed reply. The user's message stays in place.
type GenerationError struct {
	ModelID string
	Err     error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation with model %s failed: %v", e.ModelID, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// PersistenceWarning is a failed append or rename. Only ever logged.
type PersistenceWarning struct {
	Op     string
	ChatID string
	Err    error
}

func (e *PersistenceWarning) Error() string {
	return fmt.Sprintf("persist %s for chat %s: %v", e.Op, e.ChatID, e.Err)
}

func (e *PersistenceWarning) Unwrap() error {
	return e.Err
}
