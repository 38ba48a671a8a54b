package hbar

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DER prefixes used by the network's standard ed25519 key encoding. Keys are
// accepted both raw (64 hex chars) and DER-wrapped.
const (
	derPrivateKeyPrefix = "302e020100300506032b657004220420"
	derPublicKeyPrefix  = "302a300506032b6570032100"
)

// ParseAddress validates the shard.realm.num account format and returns its
// components.
func ParseAddress(address string) (shard, realm, num uint64, err error) {
	parts := strings.Split(address, ".")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("address %q is not in shard.realm.num form", address)
	}
	values := make([]uint64, 3)
	for i, part := range parts {
		value, parseErr := strconv.ParseUint(part, 10, 64)
		if parseErr != nil {
			return 0, 0, 0, fmt.Errorf("address %q is not in shard.realm.num form", address)
		}
		values[i] = value
	}
	return values[0], values[1], values[2], nil
}

// ParsePrivateKey decodes a hex or DER-wrapped hex ed25519 private key. A
// 64-byte concatenated seed+public encoding is accepted too.
func ParsePrivateKey(encoded string) (ed25519.PrivateKey, error) {
	clean := strings.ToLower(strings.TrimSpace(encoded))
	clean = strings.TrimPrefix(clean, "0x")
	clean = strings.TrimPrefix(clean, derPrivateKeyPrefix)

	raw, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("private key is not valid hex: %w", err)
	}
	switch len(raw) {
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(raw), nil
	case ed25519.PrivateKeySize:
		return ed25519.NewKeyFromSeed(raw[:ed25519.SeedSize]), nil
	default:
		return nil, fmt.Errorf("private key must decode to %d or %d bytes, got %d", ed25519.SeedSize, ed25519.PrivateKeySize, len(raw))
	}
}

// ParsePublicKey decodes a hex or DER-wrapped hex ed25519 public key.
func ParsePublicKey(encoded string) (ed25519.PublicKey, error) {
	clean := strings.ToLower(strings.TrimSpace(encoded))
	clean = strings.TrimPrefix(clean, "0x")
	clean = strings.TrimPrefix(clean, derPublicKeyPrefix)

	raw, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("public key is not valid hex: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, errors.New("public key must decode to 32 bytes")
	}
	return ed25519.PublicKey(raw), nil
}
