// Package keygen produces raw ed25519 key material for address creation.
// Keys are derived from a freshly generated BIP-39 mnemonic so the caller can
// hand the phrase to the user as recovery material.
package keygen

import (
	"crypto/ed25519"
	"fmt"

	"github.com/tyler-smith/go-bip39"
)

// KeyPair holds raw 32-byte ed25519 key buffers plus the mnemonic the seed
// was derived from. The mnemonic and private bytes must never be logged.
type KeyPair struct {
	PrivateKeyRaw []byte
	PublicKeyRaw  []byte
	Mnemonic      string
}

// Generate creates a 24-word mnemonic from 256 bits of entropy and derives an
// ed25519 key pair from the first 32 bytes of its seed.
func Generate() (*KeyPair, error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return nil, fmt.Errorf("generate entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return nil, fmt.Errorf("build mnemonic: %w", err)
	}
	return FromMnemonic(mnemonic)
}

// FromMnemonic rebuilds the key pair for an existing mnemonic.
func FromMnemonic(mnemonic string) (*KeyPair, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, fmt.Errorf("invalid mnemonic")
	}
	seed := bip39.NewSeed(mnemonic, "")
	private := ed25519.NewKeyFromSeed(seed[:ed25519.SeedSize])
	public := private.Public().(ed25519.PublicKey)

	pair := &KeyPair{
		PrivateKeyRaw: make([]byte, ed25519.SeedSize),
		PublicKeyRaw:  make([]byte, ed25519.PublicKeySize),
		Mnemonic:      mnemonic,
	}
	copy(pair.PrivateKeyRaw, private.Seed())
	copy(pair.PublicKeyRaw, public)
	return pair, nil
}
