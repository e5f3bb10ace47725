// Package id generates the opaque, K-sortable identifiers used for ledger
// entries. IDs are TypeIDs of the form "lent_01h2xcejqtf2nbrexx3vqjhp41".
package id

import (
	"fmt"

	"go.jetify.com/typeid/v2"
)

// PrefixLedgerEntry identifies ledger entry IDs.
const PrefixLedgerEntry = "lent"

// NewLedgerEntryID returns a fresh ledger entry ID.
// It panics only if the prefix constant is invalid (programming error).
func NewLedgerEntryID() string {
	tid, err := typeid.Generate(PrefixLedgerEntry)
	if err != nil {
		panic(fmt.Sprintf("id: invalid prefix %q: %v", PrefixLedgerEntry, err))
	}
	return tid.String()
}

// ParseLedgerEntryID validates s as a ledger entry ID.
func ParseLedgerEntryID(s string) (string, error) {
	if s == "" {
		return "", fmt.Errorf("id: parse %q: empty string", s)
	}
	tid, err := typeid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("id: parse %q: %w", s, err)
	}
	if tid.Prefix() != PrefixLedgerEntry {
		return "", fmt.Errorf("id: expected prefix %q, got %q", PrefixLedgerEntry, tid.Prefix())
	}
	return tid.String(), nil
}
