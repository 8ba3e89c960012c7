package keystore

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/ATMackay/dev-keystore/keys"
	gethkeystore "github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"golang.org/x/crypto/pbkdf2"
)

// Params selects the key derivation function and its work factor.
type Params struct {
	KDF        string
	ScryptN    int
	ScryptR    int
	ScryptP    int
	Iterations int // pbkdf2 rounds
}

var (
	// StandardParams matches the defaults of common keyfile tooling: pbkdf2
	// with a million rounds.
	StandardParams = Params{KDF: KDFPBKDF2, Iterations: 1_000_000}

	// StandardScryptParams is the scrypt equivalent (n=2^18, r=8, p=1).
	StandardScryptParams = Params{KDF: KDFScrypt, ScryptN: 1 << 18, ScryptR: 8, ScryptP: 1}

	// LightParams is cheap enough for tests and throwaway dev chains. DO NOT
	// use it for keys that guard real funds.
	LightParams = Params{KDF: KDFPBKDF2, Iterations: 4096}

	LightScryptParams = Params{KDF: KDFScrypt, ScryptN: 1 << 12, ScryptR: 8, ScryptP: 6}
)

const (
	// scryptR is the only block size go-ethereum writes and reads.
	scryptR = 8

	// scrypt needs 128*N*r bytes; records above the standard cost are refused
	// so a hostile file cannot exhaust memory.
	maxScryptNR = (1 << 18) * scryptR
	maxScryptP  = 16
)

// Validate checks that the parameters describe a supported KDF.
func (p Params) Validate() error {
	switch p.KDF {
	case KDFPBKDF2:
		if p.Iterations < 1 {
			return fmt.Errorf("%w: pbkdf2 iterations must be positive", ErrUnsupported)
		}
	case KDFScrypt:
		if p.ScryptR != scryptR {
			return fmt.Errorf("%w: scrypt r must be %d, got %d", ErrUnsupported, scryptR, p.ScryptR)
		}
		return checkScryptCost(p.ScryptN, p.ScryptR, p.ScryptP)
	default:
		return fmt.Errorf("%w: kdf '%s'", ErrUnsupported, p.KDF)
	}
	return nil
}

// Encrypt builds a version 3 keystore record for priv with a fresh salt, IV
// and id. The passphrase may be empty.
func Encrypt(priv *ecdsa.PrivateKey, passphrase []byte, p Params) (*Record, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("failed to generate id: %w", err)
	}
	if p.KDF == KDFScrypt {
		return encryptScrypt(priv, passphrase, p, id)
	}

	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	iv := make([]byte, ivLen)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, fmt.Errorf("failed to generate iv: %w", err)
	}
	return encryptPBKDF2(priv, passphrase, p.Iterations, salt, iv, id)
}

// encryptScrypt hands the work to go-ethereum, which picks its own 32 byte
// salt and IV.
func encryptScrypt(priv *ecdsa.PrivateKey, passphrase []byte, p Params, id uuid.UUID) (*Record, error) {
	keyBytes := keys.Bytes(priv)
	defer clear(keyBytes)

	cj, err := gethkeystore.EncryptDataV3(keyBytes, passphrase, p.ScryptN, p.ScryptP)
	if err != nil {
		return nil, fmt.Errorf("scrypt encryption failed: %w", err)
	}
	kp, err := kdfParamsFromMap(cj.KDFParams)
	if err != nil {
		return nil, err
	}
	return newRecord(priv, CryptoJSON{
		Cipher:       cj.Cipher,
		CipherText:   cj.CipherText,
		CipherParams: CipherParams{IV: cj.CipherParams.IV},
		KDF:          cj.KDF,
		KDFParams:    kp,
		MAC:          cj.MAC,
	}, id), nil
}

// encryptPBKDF2 writes the eth_keyfile flavour of the format, which
// go-ethereum can read but not produce.
func encryptPBKDF2(priv *ecdsa.PrivateKey, passphrase []byte, iterations int, salt, iv []byte, id uuid.UUID) (*Record, error) {
	kdfParams := KDFParams{
		C:     iterations,
		DKLen: dkLen,
		PRF:   PRFHMACSHA256,
		Salt:  hex.EncodeToString(salt),
	}
	derivedKey, err := derivePBKDF2(passphrase, kdfParams)
	if err != nil {
		return nil, err
	}
	defer clear(derivedKey)

	keyBytes := keys.Bytes(priv)
	defer clear(keyBytes)

	cipherText, err := aesCTRXOR(derivedKey[:16], keyBytes, iv)
	if err != nil {
		return nil, err
	}
	mac := crypto.Keccak256(derivedKey[16:32], cipherText)

	return newRecord(priv, CryptoJSON{
		Cipher:       CipherAES128CTR,
		CipherText:   hex.EncodeToString(cipherText),
		CipherParams: CipherParams{IV: hex.EncodeToString(iv)},
		KDF:          KDFPBKDF2,
		KDFParams:    kdfParams,
		MAC:          hex.EncodeToString(mac),
	}, id), nil
}

func newRecord(priv *ecdsa.PrivateKey, c CryptoJSON, id uuid.UUID) *Record {
	return &Record{
		Address: keys.HexNoPrefix(keys.Address(priv)),
		Crypto:  c,
		ID:      id.String(),
		Version: Version,
	}
}

// Decrypt recovers the private key from a record. A wrong passphrase or a
// tampered record yields ErrDecrypt.
func Decrypt(r *Record, passphrase []byte) (*ecdsa.PrivateKey, error) {
	if r.Version != Version {
		return nil, fmt.Errorf("%w: version %d", ErrUnsupported, r.Version)
	}
	if r.Crypto.Cipher != CipherAES128CTR {
		return nil, fmt.Errorf("%w: cipher '%s'", ErrUnsupported, r.Crypto.Cipher)
	}
	mac, err := hex.DecodeString(r.Crypto.MAC)
	if err != nil {
		return nil, fmt.Errorf("%w: mac: %v", ErrMalformedRecord, err)
	}
	iv, err := hex.DecodeString(r.Crypto.CipherParams.IV)
	if err != nil {
		return nil, fmt.Errorf("%w: iv: %v", ErrMalformedRecord, err)
	}
	if len(iv) != aes.BlockSize {
		return nil, fmt.Errorf("%w: iv length %d", ErrMalformedRecord, len(iv))
	}
	cipherText, err := hex.DecodeString(r.Crypto.CipherText)
	if err != nil {
		return nil, fmt.Errorf("%w: ciphertext: %v", ErrMalformedRecord, err)
	}
	if _, err := hex.DecodeString(r.Crypto.KDFParams.Salt); err != nil {
		return nil, fmt.Errorf("%w: salt: %v", ErrMalformedRecord, err)
	}
	if r.Crypto.KDFParams.DKLen < dkLen {
		return nil, fmt.Errorf("%w: dklen %d", ErrUnsupported, r.Crypto.KDFParams.DKLen)
	}

	var plainText []byte
	switch r.Crypto.KDF {
	case KDFScrypt:
		plainText, err = decryptScrypt(r.Crypto, passphrase)
	case KDFPBKDF2:
		plainText, err = decryptPBKDF2(r.Crypto.KDFParams, passphrase, mac, cipherText, iv)
	default:
		err = fmt.Errorf("%w: kdf '%s'", ErrUnsupported, r.Crypto.KDF)
	}
	if err != nil {
		return nil, err
	}
	defer clear(plainText)

	priv, err := crypto.ToECDSA(plainText)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	if r.Address != "" {
		want, err := hex.DecodeString(keys.Normalize(r.Address))
		if err != nil || !bytes.Equal(want, keys.Address(priv).Bytes()) {
			return nil, fmt.Errorf("%w: address field does not match key", ErrMalformedRecord)
		}
	}
	return priv, nil
}

func decryptScrypt(c CryptoJSON, passphrase []byte) ([]byte, error) {
	kp := c.KDFParams
	if err := checkScryptCost(kp.N, kp.R, kp.P); err != nil {
		return nil, err
	}

	cj := gethkeystore.CryptoJSON{
		Cipher:     c.Cipher,
		CipherText: c.CipherText,
		KDF:        KDFScrypt,
		KDFParams: map[string]interface{}{
			"n":     kp.N,
			"r":     kp.R,
			"p":     kp.P,
			"dklen": kp.DKLen,
			"salt":  kp.Salt,
		},
		MAC: c.MAC,
	}
	cj.CipherParams.IV = c.CipherParams.IV

	plainText, err := gethkeystore.DecryptDataV3(cj, string(passphrase))
	switch {
	case errors.Is(err, gethkeystore.ErrDecrypt):
		return nil, ErrDecrypt
	case err != nil:
		return nil, fmt.Errorf("%w: scrypt: %v", ErrUnsupported, err)
	}
	return plainText, nil
}

func decryptPBKDF2(kp KDFParams, passphrase, mac, cipherText, iv []byte) ([]byte, error) {
	derivedKey, err := derivePBKDF2(passphrase, kp)
	if err != nil {
		return nil, err
	}
	defer clear(derivedKey)

	calculatedMAC := crypto.Keccak256(derivedKey[16:32], cipherText)
	if subtle.ConstantTimeCompare(calculatedMAC, mac) != 1 {
		return nil, ErrDecrypt
	}
	return aesCTRXOR(derivedKey[:16], cipherText, iv)
}

// checkScryptCost bounds the memory and work a set of scrypt parameters
// can demand.
func checkScryptCost(n, r, p int) error {
	if n < 2 || n&(n-1) != 0 {
		return fmt.Errorf("%w: scrypt n must be a power of two > 1, got %d", ErrUnsupported, n)
	}
	if r < 1 || p < 1 {
		return fmt.Errorf("%w: scrypt r and p must be positive", ErrUnsupported)
	}
	if n > maxScryptNR/r {
		return fmt.Errorf("%w: scrypt n=%d r=%d exceeds the memory limit", ErrUnsupported, n, r)
	}
	if p > maxScryptP {
		return fmt.Errorf("%w: scrypt p=%d exceeds %d", ErrUnsupported, p, maxScryptP)
	}
	return nil
}

// kdfParamsFromMap converts go-ethereum's untyped kdfparams.
func kdfParamsFromMap(m map[string]interface{}) (KDFParams, error) {
	var kp KDFParams
	for name, dst := range map[string]*int{"n": &kp.N, "r": &kp.R, "p": &kp.P, "dklen": &kp.DKLen} {
		switch v := m[name].(type) {
		case int:
			*dst = v
		case float64:
			*dst = int(v)
		default:
			return KDFParams{}, fmt.Errorf("%w: kdfparams %s", ErrMalformedRecord, name)
		}
	}
	salt, ok := m["salt"].(string)
	if !ok {
		return KDFParams{}, fmt.Errorf("%w: kdfparams salt", ErrMalformedRecord)
	}
	kp.Salt = salt
	return kp, nil
}

func derivePBKDF2(passphrase []byte, kp KDFParams) ([]byte, error) {
	salt, err := hex.DecodeString(kp.Salt)
	if err != nil {
		return nil, fmt.Errorf("%w: salt: %v", ErrMalformedRecord, err)
	}
	if kp.DKLen < dkLen {
		return nil, fmt.Errorf("%w: dklen %d", ErrUnsupported, kp.DKLen)
	}
	if kp.PRF != PRFHMACSHA256 {
		return nil, fmt.Errorf("%w: prf '%s'", ErrUnsupported, kp.PRF)
	}
	if kp.C < 1 {
		return nil, fmt.Errorf("%w: pbkdf2 c %d", ErrUnsupported, kp.C)
	}
	return pbkdf2.Key(passphrase, salt, kp.C, kp.DKLen, sha256.New), nil
}

func aesCTRXOR(key, in, iv []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	if len(iv) != block.BlockSize() {
		return nil, fmt.Errorf("%w: iv length %d", ErrMalformedRecord, len(iv))
	}
	out := make([]byte, len(in))
	cipher.NewCTR(block, iv).XORKeyStream(out, in)
	return out, nil
}
