package valueobjects

import (
	"encoding/hex"
	"errors"
	"strings"

	"dataworkspace/domain/core/validators"
)

const (
	// TablePrefix starts every tabular dataset's backing table name.
	TablePrefix = "dataset_"
	// PartitionPrefix starts every graph dataset's partition label. Caller supplied
	// labels may not use it.
	PartitionPrefix = "Graph_"
)

var errZeroDatasetID = errors.New("physical names require a generated dataset ID")

// sanitize maps a dataset id onto the 32 lowercase hex digits of its bytes. Distinct
// ids always give distinct outputs and the output alphabet is [0-9a-f].
func sanitize(id DatasetID) (string, error) {
	if id.IsZero() {
		return "", errZeroDatasetID
	}
	return hex.EncodeToString(id.value[:]), nil
}

// TableName returns the name of the table backing a tabular dataset.
func TableName(id DatasetID) (string, error) {
	return physicalName("table", TablePrefix, id)
}

// PartitionLabel returns the label every node of a graph dataset carries.
func PartitionLabel(id DatasetID) (string, error) {
	return physicalName("partition label", PartitionPrefix, id)
}

func physicalName(kind, prefix string, id DatasetID) (string, error) {
	suffix, err := sanitize(id)
	if err != nil {
		return "", err
	}
	name := prefix + suffix
	if err := validators.ValidateIdentifier(kind, name); err != nil {
		return "", err
	}
	return name, nil
}

// IsReservedLabel reports whether a caller supplied label collides with the
// partition label namespace.
func IsReservedLabel(label string) bool {
	return strings.HasPrefix(strings.ToLower(label), strings.ToLower(PartitionPrefix))
}
