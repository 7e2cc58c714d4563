// Package record defines the material record data model and its wire codec.
package record

import (
	"strings"

	"github.com/materium/registry/errors"
)

// Status is the verification state of a material record.
type Status string

// Record statuses. A record is created pending and moves to exactly one of
// the terminal states; terminal states admit no further transition.
const (
	StatusPending  Status = "pending"
	StatusVerified Status = "verified"
	StatusRejected Status = "rejected"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusVerified, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether s admits no further transition.
func (s Status) Terminal() bool {
	return s == StatusVerified || s == StatusRejected
}

// Record is the unit of storage: one material research submission.
// All fields except Status are immutable after creation.
type Record struct {
	// ID is the registry key suffix; it is carried outside the stored blob.
	ID string

	// Payload is the opaque encrypted blob. The registry never inspects it.
	Payload []byte

	// Timestamp is seconds since epoch, set once at creation.
	Timestamp int64

	// Owner is the submitter's authenticated identity.
	Owner string

	MaterialType        string
	Properties          string
	ResearchInstitution string

	Status Status
}

// OwnedBy reports whether caller is the record owner. Identity comparison is
// case-insensitive: ledger addresses are checksum-cased inconsistently by
// wallets.
func (r Record) OwnedBy(caller string) bool {
	return strings.EqualFold(r.Owner, caller)
}

// Validate checks the fields a new submission must carry. The payload may be
// empty: an empty ciphertext is the encryption collaborator's business.
func (r Record) Validate() error {
	if r.MaterialType == "" {
		return errors.WrapInvalid(errors.ErrInvalidRecord, "Record", "Validate", "materialType is required")
	}
	if r.Properties == "" {
		return errors.WrapInvalid(errors.ErrInvalidRecord, "Record", "Validate", "properties is required")
	}
	if r.Owner == "" {
		return errors.WrapInvalid(errors.ErrInvalidRecord, "Record", "Validate", "owner is required")
	}
	if r.Status != "" && !r.Status.Valid() {
		return errors.WrapInvalid(errors.ErrInvalidRecord, "Record", "Validate", "unknown status")
	}
	return nil
}
