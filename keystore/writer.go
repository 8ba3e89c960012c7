package keystore

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/ATMackay/dev-keystore/keys"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

// Policy decides what happens when a record file already exists.
type Policy string

const (
	Overwrite    Policy = "overwrite" // replace the existing file
	FailIfExists Policy = "fail"      // return ErrRecordExists
	SkipIfExists Policy = "skip"      // leave the existing file untouched
)

func (p Policy) Validate() error {
	switch p {
	case Overwrite, FailIfExists, SkipIfExists:
		return nil
	default:
		return fmt.Errorf("invalid overwrite policy '%s'", p)
	}
}

// Action reports what Store did with a record.
type Action string

const (
	Written     Action = "written"
	Overwritten Action = "overwritten"
	Skipped     Action = "skipped"
)

// Outcome is the result of storing a single key.
type Outcome struct {
	Address  common.Address
	Path     string
	Action   Action
	Duration time.Duration // time spent deriving and encrypting
}

const (
	filePrefix = "wallet."
	fileSuffix = ".json"
	fileMode   = 0600
)

// FileName returns the record file name for an address: wallet.<address>.json.
func FileName(addr common.Address) string {
	return filePrefix + keys.HexNoPrefix(addr) + fileSuffix
}

// Writer encrypts private keys and persists them as keystore files in a
// single directory. It never creates the directory itself, see PrepareDir.
type Writer struct {
	dir    string
	params Params
	policy Policy
	verify bool
	logger *logrus.Entry
}

// NewWriter returns a Writer for dir. When verify is set every written file
// is read back and decrypted before Store returns.
func NewWriter(dir string, params Params, policy Policy, verify bool, l *logrus.Entry) (*Writer, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if l == nil {
		l = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Writer{
		dir:    dir,
		params: params,
		policy: policy,
		verify: verify,
		logger: l,
	}, nil
}

// Dir returns the output directory.
func (w *Writer) Dir() string {
	return w.dir
}

// Path returns the file path a record for addr is written to.
func (w *Writer) Path(addr common.Address) string {
	return filepath.Join(w.dir, FileName(addr))
}

// Write encrypts priv under passphrase, writes exactly one file and returns
// the derived address.
func (w *Writer) Write(priv *ecdsa.PrivateKey, passphrase []byte) (common.Address, error) {
	out, err := w.Store(priv, passphrase)
	if out == nil {
		return common.Address{}, err
	}
	return out.Address, err
}

// WriteHex parses a hex private key and writes it.
func (w *Writer) WriteHex(raw string, passphrase []byte) (common.Address, error) {
	priv, err := keys.Parse(raw)
	if err != nil {
		return common.Address{}, err
	}
	return w.Write(priv, passphrase)
}

// Store is Write with a detailed outcome. On failure the returned Outcome is
// still non-nil and carries the derived address and path.
func (w *Writer) Store(priv *ecdsa.PrivateKey, passphrase []byte) (*Outcome, error) {
	addr := keys.Address(priv)
	out := &Outcome{Address: addr, Path: w.Path(addr), Action: Written}

	existed, err := w.exists(out.Path)
	if err != nil {
		return out, err
	}
	if existed {
		switch w.policy {
		case SkipIfExists:
			out.Action = Skipped
			w.logger.WithFields(logrus.Fields{"address": addr.Hex(), "path": out.Path}).Debug("recordSkipped")
			return out, nil
		case FailIfExists:
			return out, fmt.Errorf("%w: %s", ErrRecordExists, out.Path)
		default:
			out.Action = Overwritten
		}
	}

	start := time.Now()
	record, err := Encrypt(priv, passphrase, w.params)
	if err != nil {
		return out, err
	}
	b, err := record.Marshal()
	if err != nil {
		return out, err
	}
	out.Duration = time.Since(start)

	if err := w.commit(out.Path, b); err != nil {
		return out, err
	}

	if w.verify {
		if err := verifyFile(out.Path, priv, passphrase); err != nil {
			return out, err
		}
	}

	w.logger.WithFields(logrus.Fields{
		"address":              addr.Hex(),
		"path":                 out.Path,
		"action":               out.Action,
		"kdf":                  w.params.KDF,
		"elapsed_milliseconds": out.Duration.Milliseconds(),
	}).Debug("recordWritten")

	return out, nil
}

func (w *Writer) exists(path string) (bool, error) {
	_, err := os.Lstat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
}

// commit writes b to a temporary file in the output directory and moves it
// into place. With FailIfExists the move is a hard link so an existing file
// is never replaced.
func (w *Writer) commit(path string, b []byte) error {
	f, err := os.CreateTemp(w.dir, "."+filepath.Base(path)+".tmp")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if _, err := f.Write(b); err != nil {
		f.Close()
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if err := f.Chmod(fileMode); err != nil {
		f.Close()
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	if w.policy == FailIfExists {
		if err := os.Link(tmp, path); err != nil {
			if errors.Is(err, fs.ErrExist) {
				return fmt.Errorf("%w: %s", ErrRecordExists, path)
			}
			return fmt.Errorf("%w: %w", ErrPersistence, err)
		}
		return nil
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return nil
}

func verifyFile(path string, priv *ecdsa.PrivateKey, passphrase []byte) error {
	got, err := ReadFile(path, passphrase)
	if err != nil {
		return fmt.Errorf("%w: verify %s: %w", ErrPersistence, path, err)
	}
	if !got.Equal(priv) {
		return fmt.Errorf("%w: verify %s: decrypted key does not match", ErrPersistence, path)
	}
	return nil
}

// ReadFile loads and decrypts a keystore file.
func ReadFile(path string, passphrase []byte) (*ecdsa.PrivateKey, error) {
	b, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	r, err := Unmarshal(b)
	if err != nil {
		return nil, err
	}
	return Decrypt(r, passphrase)
}

// PrepareDir is the explicit setup step for the output directory. It fails
// if dir is missing, unless create is set, and if dir is not a directory.
func PrepareDir(dir string, create bool) error {
	info, err := os.Stat(dir)
	switch {
	case err == nil:
		if !info.IsDir() {
			return fmt.Errorf("%w: %s is not a directory", ErrPersistence, dir)
		}
		return nil
	case errors.Is(err, fs.ErrNotExist) && create:
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("%w: %w", ErrPersistence, err)
		}
		return nil
	default:
		return fmt.Errorf("%w: output directory: %w", ErrPersistence, err)
	}
}
