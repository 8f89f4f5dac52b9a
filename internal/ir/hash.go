package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content hashes. The version suffix allows a future
// change of algorithm without ambiguity.
const (
	DomainAction = "flux/action/v1"
	DomainState  = "flux/state/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Hash returns the hex SHA-256 of the canonical form of v under domain.
func Hash(domain string, v any) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", domain, err)
	}
	return hashWithDomain(domain, canonical), nil
}

// StateHash identifies a state snapshot. Two states with equal canonical
// JSON have equal hashes; replay verification compares these.
func StateHash(state any) (string, error) {
	return Hash(DomainState, state)
}

// ActionHash identifies an encoded action.
func ActionHash(action Object) (string, error) {
	return Hash(DomainAction, action)
}

// MustStateHash is like StateHash but panics on error.
// Use only in tests or when the state is known to be serializable.
func MustStateHash(state any) string {
	h, err := StateHash(state)
	if err != nil {
		panic(err)
	}
	return h
}
