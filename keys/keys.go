package keys

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// PrivateKeyHexLength is the length of a hex-encoded secp256k1 secret.
const PrivateKeyHexLength = 64

// ErrInvalidKeyFormat is returned for private key strings that are not
// 32 bytes of hex or do not encode a valid secp256k1 scalar.
var ErrInvalidKeyFormat = errors.New("invalid key format")

// Normalize strips surrounding whitespace and an optional 0x prefix.
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
	}
	return s
}

// Parse decodes a hex private key. Whitespace around the input is ignored.
func Parse(raw string) (*ecdsa.PrivateKey, error) {
	s := Normalize(raw)
	if len(s) != PrivateKeyHexLength {
		return nil, fmt.Errorf("%w: expected %d hex characters, got %d", ErrInvalidKeyFormat, PrivateKeyHexLength, len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyFormat, err)
	}
	defer clear(b)

	priv, err := crypto.ToECDSA(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyFormat, err)
	}
	return priv, nil
}

// Address derives the account address of a private key.
func Address(priv *ecdsa.PrivateKey) common.Address {
	return crypto.PubkeyToAddress(priv.PublicKey)
}

// HexNoPrefix renders an address as 40 lowercase hex characters, the form
// used in keystore records and file names.
func HexNoPrefix(addr common.Address) string {
	return hex.EncodeToString(addr.Bytes())
}

// Bytes returns the 32 byte big-endian encoding of the private key.
// Callers should clear the slice after use.
func Bytes(priv *ecdsa.PrivateKey) []byte {
	return crypto.FromECDSA(priv)
}
