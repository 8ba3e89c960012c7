package keystore

import (
	"errors"

	"github.com/ATMackay/dev-keystore/keys"
)

var (
	// ErrInvalidKeyFormat is returned for malformed private key input.
	ErrInvalidKeyFormat = keys.ErrInvalidKeyFormat
	// ErrRecordExists is returned by a FailIfExists writer when the target file is present.
	ErrRecordExists = errors.New("keystore record already exists")
	// ErrPersistence wraps every filesystem failure. Writes are never retried.
	ErrPersistence = errors.New("keystore persistence error")

	ErrDecrypt         = errors.New("could not decrypt key with given passphrase")
	ErrUnsupported     = errors.New("unsupported keystore parameters")
	ErrMalformedRecord = errors.New("malformed keystore record")
)
