package generator

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ATMackay/dev-keystore/keys"
	"github.com/ATMackay/dev-keystore/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

// ErrDuplicateKey is returned when two input keys derive the same address.
var ErrDuplicateKey = errors.New("duplicate key")

// RecordStore persists a single private key as a keystore record.
type RecordStore interface {
	Store(priv *ecdsa.PrivateKey, passphrase []byte) (*keystore.Outcome, error)
}

var _ RecordStore = (*keystore.Writer)(nil)

// KeyError reports the failure of one key in a batch. Address is the zero
// address when it could not be derived.
type KeyError struct {
	Index   int
	Address common.Address
	Err     error
}

func (e *KeyError) Error() string {
	if e.Address == (common.Address{}) {
		return fmt.Sprintf("key %d: %v", e.Index, e.Err)
	}
	return fmt.Sprintf("key %d (%s): %v", e.Index, e.Address.Hex(), e.Err)
}

func (e *KeyError) Unwrap() error {
	return e.Err
}

// Generator is the batch driver: it feeds a list of hex private keys through
// a RecordStore in declaration order and reports the derived addresses.
type Generator struct {
	store   RecordStore
	logger  *logrus.Entry
	metrics *Metrics
	out     io.Writer // console output, one line per key
	collect bool
}

// New constructs a Generator. By default the first failing key aborts the
// batch; with collectErrors set every key is attempted and all failures are
// returned together.
func New(store RecordStore, l *logrus.Entry, m *Metrics, out io.Writer, collectErrors bool) *Generator {
	if m == nil {
		m = NewMetrics()
	}
	if out == nil {
		out = io.Discard
	}
	return &Generator{
		store:   store,
		logger:  l,
		metrics: m,
		out:     out,
		collect: collectErrors,
	}
}

// Metrics exposes the run metrics.
func (g *Generator) Metrics() *Metrics {
	return g.metrics
}

// Run writes one keystore record per key and returns the derived addresses
// in input order. Files written before a failure are left on disk.
func (g *Generator) Run(rawKeys []string, passphrase []byte) ([]common.Address, error) {
	start := time.Now()
	g.logger.WithFields(logrus.Fields{
		"keys":          len(rawKeys),
		"collectErrors": g.collect,
	}).Info("generatingKeystores")

	var (
		addrs []common.Address
		errs  []error
		seen  = make(map[common.Address]int, len(rawKeys))
	)
	for i, raw := range rawKeys {
		addr, err := g.process(i, raw, passphrase, seen)
		if err != nil {
			g.metrics.fail(err)
			g.logger.WithFields(logrus.Fields{"index": i, "error": err}).Error("keyFailed")
			if !g.collect {
				return addrs, err
			}
			errs = append(errs, err)
			continue
		}
		addrs = append(addrs, addr)
		fmt.Fprintln(g.out, addr.Hex())
	}

	fmt.Fprintln(g.out, formatAddresses(addrs))

	g.logger.WithFields(logrus.Fields{
		"written":              len(addrs),
		"failed":               len(errs),
		"elapsed_milliseconds": time.Since(start).Milliseconds(),
	}).Info("generationComplete")

	return addrs, errors.Join(errs...)
}

func (g *Generator) process(index int, raw string, passphrase []byte, seen map[common.Address]int) (common.Address, error) {
	priv, err := keys.Parse(raw)
	if err != nil {
		return common.Address{}, &KeyError{Index: index, Err: err}
	}
	addr := keys.Address(priv)
	if prev, ok := seen[addr]; ok {
		return common.Address{}, &KeyError{Index: index, Address: addr, Err: fmt.Errorf("%w: same address as key %d", ErrDuplicateKey, prev)}
	}
	seen[addr] = index

	out, err := g.store.Store(priv, passphrase)
	if err != nil {
		return common.Address{}, &KeyError{Index: index, Address: addr, Err: err}
	}
	g.metrics.observe(out)

	g.logger.WithFields(logrus.Fields{
		"index":   index,
		"address": out.Address.Hex(),
		"action":  out.Action,
	}).Info("keystoreReady")

	return out.Address, nil
}

func formatAddresses(addrs []common.Address) string {
	s := make([]string, len(addrs))
	for i, a := range addrs {
		s[i] = a.Hex()
	}
	return "[" + strings.Join(s, ", ") + "]"
}
