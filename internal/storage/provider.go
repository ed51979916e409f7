// Package storage persists session state as one JSON object per session.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/redline/internal/apperr"
	"github.com/starford/redline/internal/models"
)

// Provider is the interface for session persistence.
type Provider interface {
	// List returns metadata for every stored session.
	List(ctx context.Context) ([]models.SessionMetadata, error)
	// Load returns the stored state of session id, or apperr.ErrNotFound.
	Load(ctx context.Context, id string) (models.SessionState, models.SessionMetadata, error)
	// Save replaces the stored state of session id.
	Save(ctx context.Context, id string, state models.SessionState) (models.SessionMetadata, error)
	// Delete removes session id. Deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error
}

const ext = ".json"

var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateID rejects session ids that cannot be used as a file or object name.
func ValidateID(id string) error {
	err := validation.Validate(id,
		validation.Required,
		validation.Length(1, 128),
		validation.Match(idPattern),
	)
	if err != nil {
		return fmt.Errorf("%w: session id %q: %v", apperr.ErrInvalid, id, err)
	}
	return nil
}

func encode(state models.SessionState) ([]byte, error) {
	if state.Logs == nil {
		state.Logs = []models.LogEntry{}
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("storage: encode: %w", err)
	}
	return data, nil
}

func decode(data []byte) (models.SessionState, error) {
	var state models.SessionState
	if err := json.Unmarshal(data, &state); err != nil {
		return models.SessionState{}, fmt.Errorf("storage: decode: %w", err)
	}
	return state, nil
}
