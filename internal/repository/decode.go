package repository

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidPayload is returned for snapshots that cannot be decoded or validated.
var ErrInvalidPayload = errors.New("invalid document payload")

var validate = validator.New()

// DecodeResourceDocs parses and validates a resource docs snapshot.
func DecodeResourceDocs(payload []byte) (ResourceDocsSnapshot, error) {
	var snapshot ResourceDocsSnapshot
	if err := decodeStrict(payload, &snapshot); err != nil {
		return nil, err
	}
	for version, docs := range snapshot {
		if version == "" {
			return nil, fmt.Errorf("%w: empty version key", ErrInvalidPayload)
		}
		if err := validate.Struct(&docs); err != nil {
			return nil, fmt.Errorf("%w: version %s: %v", ErrInvalidPayload, version, err)
		}
	}
	snapshot.ApplyDefaults()
	return snapshot, nil
}

// DecodeMessageDocs parses and validates a message docs snapshot.
func DecodeMessageDocs(payload []byte) (MessageDocsSnapshot, error) {
	var snapshot MessageDocsSnapshot
	if err := decodeStrict(payload, &snapshot); err != nil {
		return nil, err
	}
	for connector, docs := range snapshot {
		if connector == "" {
			return nil, fmt.Errorf("%w: empty connector key", ErrInvalidPayload)
		}
		if err := validate.Struct(&docs); err != nil {
			return nil, fmt.Errorf("%w: connector %s: %v", ErrInvalidPayload, connector, err)
		}
	}
	snapshot.ApplyDefaults()
	return snapshot, nil
}

// Encode serializes a snapshot into the payload stored in a cache partition.
func Encode(snapshot any) ([]byte, error) {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return payload, nil
}

func decodeStrict(payload []byte, dest any) error {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return fmt.Errorf("%w: empty payload", ErrInvalidPayload)
	}
	if err := json.Unmarshal(trimmed, dest); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}
