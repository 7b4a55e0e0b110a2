package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed IDs. The version suffix leaves room
// for changing the algorithm later.
const (
	DomainCall     = "mimic/call/v1"
	DomainScenario = "mimic/scenario/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data). The separator keeps
// the domain and data boundary unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// CallID computes the ID of a recorded call. It is stable for the same
// session, position and arguments, so re-recording a scenario into the same
// database replaces rather than duplicates.
func CallID(session string, index int, args Array) (string, error) {
	obj := Object{
		"session": String(session),
		"index":   Int(index),
		"args":    args,
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("CallID: %w", err)
	}
	return hashWithDomain(DomainCall, canonical), nil
}

// ScenarioDigest hashes a scenario's canonical form. Traces carry it so a
// stored history can be matched to the scenario that produced it.
func ScenarioDigest(v Value) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("ScenarioDigest: %w", err)
	}
	return hashWithDomain(DomainScenario, canonical), nil
}

// MustCallID is like CallID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustCallID(session string, index int, args Array) string {
	id, err := CallID(session, index, args)
	if err != nil {
		panic(err)
	}
	return id
}
