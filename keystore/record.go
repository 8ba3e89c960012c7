package keystore

import (
	"encoding/json"
	"fmt"
)

const (
	// Version is the Web3 Secret Storage format version written by this package.
	Version = 3

	CipherAES128CTR = "aes-128-ctr"

	KDFScrypt = "scrypt"
	KDFPBKDF2 = "pbkdf2"

	PRFHMACSHA256 = "hmac-sha256"

	dkLen   = 32
	saltLen = 16
	ivLen   = 16
)

// Record is the encrypted-at-rest form of a private key. The JSON layout is
// the one read by geth, eth_keyfile and other standard keystore tooling.
type Record struct {
	Address string     `json:"address"`
	Crypto  CryptoJSON `json:"crypto"`
	ID      string     `json:"id"`
	Version int        `json:"version"`
}

// CryptoJSON holds cipher and key derivation parameters together with the
// ciphertext and MAC.
type CryptoJSON struct {
	Cipher       string       `json:"cipher"`
	CipherText   string       `json:"ciphertext"`
	CipherParams CipherParams `json:"cipherparams"`
	KDF          string       `json:"kdf"`
	KDFParams    KDFParams    `json:"kdfparams"`
	MAC          string       `json:"mac"`
}

type CipherParams struct {
	IV string `json:"iv"`
}

// KDFParams covers both supported KDFs; fields that do not apply to the
// selected KDF are omitted.
type KDFParams struct {
	C     int    `json:"c,omitempty"`   // pbkdf2
	DKLen int    `json:"dklen"`
	N     int    `json:"n,omitempty"`   // scrypt
	P     int    `json:"p,omitempty"`   // scrypt
	PRF   string `json:"prf,omitempty"` // pbkdf2
	R     int    `json:"r,omitempty"`   // scrypt
	Salt  string `json:"salt"`
}

// Marshal serializes the record.
func (r *Record) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

// Unmarshal parses a keystore JSON document.
func Unmarshal(b []byte) (*Record, error) {
	var r Record
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	return &r, nil
}
