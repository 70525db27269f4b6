package solana

import (
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// PublicKeyLength is the byte length of an ed25519 public key.
const PublicKeyLength = 32

// ErrInvalidAddress is returned for strings that are not base58 32-byte keys.
var ErrInvalidAddress = errors.New("invalid address")

// ParsePublicKey decodes a base58 address into its 32 raw bytes.
func ParsePublicKey(addr string) ([]byte, error) {
	if addr == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidAddress)
	}
	decoded, err := base58.Decode(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidAddress, addr, err)
	}
	if len(decoded) != PublicKeyLength {
		return nil, fmt.Errorf("%w: %s: length %d", ErrInvalidAddress, addr, len(decoded))
	}
	return decoded, nil
}

// IsOnCurve reports whether key is a valid ed25519 point. Program-derived
// addresses are deliberately off the curve and cannot sign.
func IsOnCurve(key []byte) bool {
	if len(key) != PublicKeyLength {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(key)
	return err == nil
}

// ValidateWalletAddress checks that addr can be a transaction signer.
func ValidateWalletAddress(addr string) error {
	key, err := ParsePublicKey(addr)
	if err != nil {
		return err
	}
	if !IsOnCurve(key) {
		return fmt.Errorf("%w: %s is off curve and cannot sign", ErrInvalidAddress, addr)
	}
	return nil
}

// ValidateMint checks that addr is a well-formed account address.
func ValidateMint(addr string) error {
	_, err := ParsePublicKey(addr)
	return err
}

// EncodePublicKey encodes raw key bytes as base58.
func EncodePublicKey(key []byte) string {
	return base58.Encode(key)
}
