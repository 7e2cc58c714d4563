package record

import (
	"encoding/json"

	"github.com/materium/registry/errors"
)

// wireRecord is the persisted JSON shape. The payload travels as a plain
// string field named "data" for compatibility with the on-ledger layout;
// pointer fields distinguish absent from zero during decode.
type wireRecord struct {
	Data                string  `json:"data"`
	Timestamp           *int64  `json:"timestamp"`
	Owner               *string `json:"owner"`
	MaterialType        *string `json:"materialType"`
	Properties          *string `json:"properties"`
	ResearchInstitution string  `json:"researchInstitution"`
	Status              string  `json:"status,omitempty"`
}

// Encode serializes a record to its on-ledger JSON form. The record ID is not
// part of the blob; it lives in the storage key.
func Encode(r Record) ([]byte, error) {
	if !r.Status.Valid() {
		return nil, errors.WrapInvalid(errors.ErrInvalidRecord, "Codec", "Encode", "unknown status")
	}

	w := wireRecord{
		Data:                string(r.Payload),
		Timestamp:           &r.Timestamp,
		Owner:               &r.Owner,
		MaterialType:        &r.MaterialType,
		Properties:          &r.Properties,
		ResearchInstitution: r.ResearchInstitution,
		Status:              string(r.Status),
	}

	data, err := json.Marshal(w)
	if err != nil {
		return nil, errors.WrapFatal(err, "Codec", "Encode", "marshal record")
	}
	return data, nil
}

// Decode parses on-ledger bytes into a record. Decoding is lenient about the
// outer shape (unknown fields are ignored) but strict on required fields:
// materialType, properties, owner and timestamp must all be present. Status
// defaults to pending when absent. All failures carry errors.ErrDecode so
// callers can skip the single record without aborting a registry scan.
func Decode(data []byte) (Record, error) {
	var w wireRecord
	if err := json.Unmarshal(data, &w); err != nil {
		return Record{}, errors.WrapInvalid(errors.ErrDecode, "Codec", "Decode", err.Error())
	}

	if w.MaterialType == nil || w.Properties == nil || w.Owner == nil || w.Timestamp == nil {
		return Record{}, errors.WrapInvalid(errors.ErrDecode, "Codec", "Decode", "missing required field")
	}

	status := Status(w.Status)
	if w.Status == "" {
		// Defensive default for blobs written before status existed
		status = StatusPending
	}
	if !status.Valid() {
		return Record{}, errors.WrapInvalid(errors.ErrDecode, "Codec", "Decode", "unknown status value")
	}

	return Record{
		Payload:             []byte(w.Data),
		Timestamp:           *w.Timestamp,
		Owner:               *w.Owner,
		MaterialType:        *w.MaterialType,
		Properties:          *w.Properties,
		ResearchInstitution: w.ResearchInstitution,
		Status:              status,
	}, nil
}
