package generator

import (
	"bytes"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ATMackay/dev-keystore/internal/devkeys"
	"github.com/ATMackay/dev-keystore/keys"
	"github.com/ATMackay/dev-keystore/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	yaml "gopkg.in/yaml.v3"
)

// addresses of the compiled-in development keys, in declaration order
var devAddresses = []string{
	"0x91d8afa86b21446f3bd2043504ae13abdcb0e59c",
	"0x8aba14b229b1c4647fbf897b99b3a36e9bdf5422",
	"0x45c65932c112952668b960b4de4f7f0f3bdca564",
	"0x6a94f8752dcc03b3717f26e5f1f88d4e63883af9",
	"0x6fcf59a82ed228c3d5849255c2d52d6ccdb3a2b3",
	"0x6037c50f9a98149338bcd76c0ba96c5eac3c779f",
	"0x43d836d2e6416b00c2805639b6e99ddcacebfe95",
	"0x0683b39c3a042fceaf71de7ccf4bcd60898758da",
	"0xc758c89acf31b19d189fe55921ecb6a192f4063d",
	"0xb9d41db4bf1d2e9b75aeea48458a806d00cf44ae",
}

var _ RecordStore = (*fakeStore)(nil)

// fakeStore records the keys it is given without touching the filesystem.
type fakeStore struct {
	stored  []common.Address
	failAt  map[int]error
	calls   int
	skipAll bool
}

func (f *fakeStore) Store(priv *ecdsa.PrivateKey, _ []byte) (*keystore.Outcome, error) {
	defer func() { f.calls++ }()
	addr := keys.Address(priv)
	out := &keystore.Outcome{Address: addr, Path: keystore.FileName(addr), Action: keystore.Written}
	if err, ok := f.failAt[f.calls]; ok {
		return out, err
	}
	if f.skipAll {
		out.Action = keystore.Skipped
	}
	f.stored = append(f.stored, addr)
	return out, nil
}

func makeTestLogger(t testing.TB) *logrus.Entry {
	l, err := NewLogger("error", "plain")
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func Test_Logger(t *testing.T) {

	tests := []struct {
		name      string
		loglevel  string
		logformat string
		expectErr bool
	}{
		{
			"normal-info-plain",
			"info",
			"plain",
			false,
		},
		{
			"normal-info-json",
			"info",
			"json",
			false,
		},
		{
			"normal-debug-plain",
			"debug",
			"plain",
			false,
		},
		{
			"error-loglevel",
			"invalid",
			"plain",
			true,
		},
		{
			"error-logformat",
			"info",
			"invalid",
			true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewLogger(tt.loglevel, tt.logformat); (err != nil) != tt.expectErr {
				t.Errorf("unexpected error '%v'", err)
			}
		})

	}
}

func Test_SanitizeConfig(t *testing.T) {

	tests := []struct {
		name           string
		initialConfig  func() Config
		expectedConfig func() Config
	}{
		{
			"empty",
			func() Config {
				return emptyConfig
			},
			func() Config {
				return defaultConfig
			},
		},
		{
			"empty-with-output-dir",
			func() Config {
				cfg := emptyConfig
				cfg.OutputDir = "/tmp/keys"
				return cfg
			},
			func() Config {
				cfg := defaultConfig
				cfg.OutputDir = "/tmp/keys"
				return cfg
			},
		},
		{
			"empty-with-scrypt",
			func() Config {
				cfg := emptyConfig
				cfg.KDF = keystore.KDFScrypt
				cfg.ScryptN = 1 << 12
				return cfg
			},
			func() Config {
				cfg := defaultConfig
				cfg.KDF = keystore.KDFScrypt
				cfg.ScryptN = 1 << 12
				return cfg
			},
		},
		{
			"empty-with-policy",
			func() Config {
				cfg := emptyConfig
				cfg.Overwrite = "skip"
				cfg.CollectErrors = true
				return cfg
			},
			func() Config {
				cfg := defaultConfig
				cfg.Overwrite = "skip"
				cfg.CollectErrors = true
				return cfg
			},
		},
		{
			"empty-passphrase",
			func() Config {
				cfg := emptyConfig
				cfg.EmptyPassphrase = true
				return cfg
			},
			func() Config {
				cfg := defaultConfig
				cfg.Passphrase = ""
				cfg.EmptyPassphrase = true
				return cfg
			},
		},
		{
			"empty-with-passphrase",
			func() Config {
				cfg := emptyConfig
				cfg.Passphrase = "hunter2"
				return cfg
			},
			func() Config {
				cfg := defaultConfig
				cfg.Passphrase = "hunter2"
				return cfg
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := tt.initialConfig()
			c.Sanitize()
			b, _ := yaml.Marshal(c)
			e, _ := yaml.Marshal(tt.expectedConfig())
			if !bytes.Equal(b, e) {
				t.Errorf("returned config not equal to expected, got\n%s\nwant\n%s", b, e)
			}
		})
	}
}

func Test_ValidateConfig(t *testing.T) {

	tests := []struct {
		name      string
		mutate    func(c *Config)
		expectErr bool
	}{
		{"default", func(c *Config) {}, false},
		{"scrypt", func(c *Config) { c.KDF = keystore.KDFScrypt }, false},
		{"bad-loglevel", func(c *Config) { c.LogLevel = "loud" }, true},
		{"bad-logformat", func(c *Config) { c.LogFormat = "xml" }, true},
		{"bad-kdf", func(c *Config) { c.KDF = "argon2" }, true},
		{"bad-scrypt-n", func(c *Config) { c.KDF = keystore.KDFScrypt; c.ScryptN = 1000 }, true},
		{"bad-policy", func(c *Config) { c.Overwrite = "merge" }, true},
		{"bad-scrypt-r", func(c *Config) { c.KDF = keystore.KDFScrypt; c.ScryptR = 16 }, true},
		{"empty-passphrase", func(c *Config) { c.Passphrase = ""; c.EmptyPassphrase = true }, false},
		{"empty-passphrase-with-value", func(c *Config) { c.EmptyPassphrase = true }, true},
		{"empty-passphrase-with-prompt", func(c *Config) { c.Passphrase = ""; c.EmptyPassphrase = true; c.PromptPassphrase = true }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := defaultConfig
			tt.mutate(&c)
			if err := c.Validate(); (err != nil) != tt.expectErr {
				t.Errorf("unexpected error '%v'", err)
			}
		})
	}
}

func Test_InputKeys(t *testing.T) {
	c := defaultConfig
	if g, w := len(c.InputKeys()), len(devkeys.PrivateKeys()); g != w {
		t.Errorf("unexpected default key count, got %v, want %v", g, w)
	}
	c.Keys = []string{"aa"}
	if g, w := c.InputKeys(), c.Keys; len(g) != 1 || g[0] != w[0] {
		t.Errorf("configured keys not used, got %v", g)
	}
}

func Test_ReadPassphrase(t *testing.T) {
	c := defaultConfig
	p, err := c.ReadPassphrase(nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if g, w := string(p), devkeys.Passphrase; g != w {
		t.Errorf("unexpected passphrase, got %v, want %v", g, w)
	}

	// a regular file is never a terminal
	f, err := os.Create(filepath.Join(t.TempDir(), "stdin"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	c.PromptPassphrase = true
	if _, err := c.ReadPassphrase(f, &bytes.Buffer{}); !errors.Is(err, errNotTerminal) {
		t.Errorf("unexpected error %v", err)
	}
}

func Test_RunDevKeys(t *testing.T) {
	store := &fakeStore{}
	var out bytes.Buffer
	gen := New(store, makeTestLogger(t), nil, &out, false)

	addrs, err := gen.Run(devkeys.PrivateKeys(), []byte(devkeys.Passphrase))
	if err != nil {
		t.Fatal(err)
	}
	if g, w := len(addrs), len(devAddresses); g != w {
		t.Fatalf("unexpected address count, got %v, want %v", g, w)
	}
	distinct := make(map[common.Address]struct{})
	for i, a := range addrs {
		if g, w := a, common.HexToAddress(devAddresses[i]); g != w {
			t.Errorf("address %d: got %v, want %v", i, g.Hex(), w.Hex())
		}
		distinct[a] = struct{}{}
	}
	if g, w := len(distinct), len(devAddresses); g != w {
		t.Errorf("unexpected distinct address count, got %v, want %v", g, w)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if g, w := len(lines), len(devAddresses)+1; g != w {
		t.Fatalf("unexpected console line count, got %v, want %v", g, w)
	}
	for i, a := range addrs {
		if g, w := lines[i], a.Hex(); g != w {
			t.Errorf("console line %d: got %v, want %v", i, g, w)
		}
	}
	if g, w := lines[len(lines)-1], formatAddresses(addrs); g != w {
		t.Errorf("unexpected summary line, got %v, want %v", g, w)
	}

	m := gen.Metrics()
	if g, w := testutil.ToFloat64(m.written), float64(len(devAddresses)); g != w {
		t.Errorf("unexpected written count, got %v, want %v", g, w)
	}
}

func Test_RunFailures(t *testing.T) {
	dev := devkeys.PrivateKeys()
	errDisk := fmt.Errorf("%w: disk full", keystore.ErrPersistence)

	tests := []struct {
		name          string
		keys          []string
		failAt        map[int]error
		collect       bool
		expectErr     error
		expectIndex   int
		expectAddrs   int
		expectStored  int
		expectAddress bool
		failureKind   string
	}{
		{
			"invalid-key-fail-fast",
			[]string{dev[0], "nothex", dev[1]},
			nil,
			false,
			keystore.ErrInvalidKeyFormat,
			1,
			1,
			1,
			false,
			kindInvalidKey,
		},
		{
			"invalid-key-collect",
			[]string{dev[0], "nothex", dev[1]},
			nil,
			true,
			keystore.ErrInvalidKeyFormat,
			1,
			2,
			2,
			false,
			kindInvalidKey,
		},
		{
			"persistence-fail-fast",
			[]string{dev[0], dev[1], dev[2]},
			map[int]error{1: errDisk},
			false,
			keystore.ErrPersistence,
			1,
			1,
			1,
			true,
			kindPersistence,
		},
		{
			"exists-collect",
			[]string{dev[0], dev[1], dev[2]},
			map[int]error{0: keystore.ErrRecordExists},
			true,
			keystore.ErrRecordExists,
			0,
			2,
			2,
			true,
			kindExists,
		},
		{
			"duplicate",
			[]string{dev[0], "0x" + dev[0]},
			nil,
			false,
			ErrDuplicateKey,
			1,
			1,
			1,
			true,
			kindDuplicate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{failAt: tt.failAt}
			gen := New(store, makeTestLogger(t), nil, nil, tt.collect)

			addrs, err := gen.Run(tt.keys, []byte(devkeys.Passphrase))
			if !errors.Is(err, tt.expectErr) {
				t.Fatalf("unexpected error, got %v, want %v", err, tt.expectErr)
			}
			var keyErr *KeyError
			if !errors.As(err, &keyErr) {
				t.Fatalf("error %v is not a KeyError", err)
			}
			if g, w := keyErr.Index, tt.expectIndex; g != w {
				t.Errorf("unexpected index, got %v, want %v", g, w)
			}
			if g, w := keyErr.Address != (common.Address{}), tt.expectAddress; g != w {
				t.Errorf("unexpected address presence %v in %v", g, keyErr)
			}
			if g, w := len(addrs), tt.expectAddrs; g != w {
				t.Errorf("unexpected address count, got %v, want %v", g, w)
			}
			if g, w := len(store.stored), tt.expectStored; g != w {
				t.Errorf("unexpected stored count, got %v, want %v", g, w)
			}
			if g, w := testutil.ToFloat64(gen.Metrics().failures.WithLabelValues(tt.failureKind)), 1.0; g != w {
				t.Errorf("unexpected %s failure count, got %v, want %v", tt.failureKind, g, w)
			}
		})
	}
}

func Test_RunSkipped(t *testing.T) {
	store := &fakeStore{skipAll: true}
	gen := New(store, makeTestLogger(t), nil, nil, false)

	addrs, err := gen.Run(devkeys.PrivateKeys()[:3], nil)
	if err != nil {
		t.Fatal(err)
	}
	if g, w := len(addrs), 3; g != w {
		t.Errorf("unexpected address count, got %v, want %v", g, w)
	}
	m := gen.Metrics()
	if g, w := testutil.ToFloat64(m.skipped), 3.0; g != w {
		t.Errorf("unexpected skipped count, got %v, want %v", g, w)
	}
	if g, w := testutil.ToFloat64(m.written), 0.0; g != w {
		t.Errorf("unexpected written count, got %v, want %v", g, w)
	}
}

func Test_KeyError(t *testing.T) {
	addr := common.HexToAddress(devAddresses[0])
	tests := []struct {
		name   string
		err    *KeyError
		expect string
	}{
		{"no-address", &KeyError{Index: 3, Err: keystore.ErrInvalidKeyFormat}, "key 3: invalid key format"},
		{"address", &KeyError{Index: 0, Address: addr, Err: keystore.ErrRecordExists}, fmt.Sprintf("key 0 (%s): keystore record already exists", addr.Hex())},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if g, w := tt.err.Error(), tt.expect; g != w {
				t.Errorf("got %q, want %q", g, w)
			}
		})
	}
}
