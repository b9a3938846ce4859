package valueobjects

import (
	"encoding/json"
	"errors"

	"github.com/google/uuid"
)

// ErrInvalidDatasetID is returned for anything that is not a dataset id this
// service could have generated.
var ErrInvalidDatasetID = errors.New("dataset ID must be a canonical version 4 UUID")

// DatasetID identifies a dataset. It is always generated by this service and is the
// only input to physical resource names.
type DatasetID struct {
	value uuid.UUID
}

// NewDatasetID creates a new random DatasetID
func NewDatasetID() DatasetID {
	return DatasetID{value: uuid.New()}
}

// ParseDatasetID accepts only the canonical lowercase textual form of a random UUID,
// so every accepted string maps to exactly one id.
func ParseDatasetID(s string) (DatasetID, error) {
	parsed, err := uuid.Parse(s)
	if err != nil {
		return DatasetID{}, ErrInvalidDatasetID
	}
	if parsed.String() != s || parsed.Version() != 4 || parsed.Variant() != uuid.RFC4122 {
		return DatasetID{}, ErrInvalidDatasetID
	}
	return DatasetID{value: parsed}, nil
}

// String returns the canonical string representation
func (id DatasetID) String() string {
	if id.IsZero() {
		return ""
	}
	return id.value.String()
}

// IsZero checks if the DatasetID is the zero value
func (id DatasetID) IsZero() bool {
	return id.value == uuid.Nil
}

// Equals checks if two DatasetIDs are equal
func (id DatasetID) Equals(other DatasetID) bool {
	return id.value == other.value
}

// MarshalJSON implements json.Marshaler
func (id DatasetID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.String())
}

// UnmarshalJSON implements json.Unmarshaler
func (id *DatasetID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDatasetID(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
