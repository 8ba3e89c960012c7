package generator

import (
	"fmt"

	"github.com/ATMackay/dev-keystore/internal/devkeys"
	"github.com/ATMackay/dev-keystore/keystore"
	"github.com/sirupsen/logrus"
)

const (
	defaultLogLevel   = "info"
	defaultLogFormat  = "plain"
	defaultOutputDir  = "keys/dev"
	defaultKDF        = keystore.KDFPBKDF2
	defaultOverwrite  = string(keystore.Overwrite)
	defaultIterations = 1_000_000
	defaultScryptN    = 1 << 18
	defaultScryptR    = 8
	defaultScryptP    = 1
)

var (
	emptyConfig   = Config{}
	defaultConfig = Config{
		LogLevel:   defaultLogLevel,
		LogFormat:  defaultLogFormat,
		OutputDir:  defaultOutputDir,
		Passphrase: devkeys.Passphrase,
		KDF:        defaultKDF,
		Iterations: defaultIterations,
		ScryptN:    defaultScryptN,
		ScryptR:    defaultScryptR,
		ScryptP:    defaultScryptP,
		Overwrite:  defaultOverwrite,
	}
)

// Config represents the generator configuration struct. Every field can be
// set from the YAML config file or from DEV_KEYSTORE_* environment variables.
type Config struct {
	LogLevel  string `yaml:"loglevel"`
	LogFormat string `yaml:"logformat"`

	OutputDir       string `yaml:"outputdir"`
	CreateOutputDir bool   `yaml:"createoutputdir"` // create outputdir when missing instead of failing

	Keys             []string `yaml:"keys"`       // hex private keys, the compiled-in dev keys when empty
	Passphrase       string   `yaml:"passphrase"` // "test" when empty, unless emptypassphrase is set
	EmptyPassphrase  bool     `yaml:"emptypassphrase"`
	PromptPassphrase bool     `yaml:"promptpassphrase"`

	KDF        string `yaml:"kdf"` // pbkdf2 or scrypt
	Iterations int    `yaml:"iterations"`
	ScryptN    int    `yaml:"scryptn"`
	ScryptR    int    `yaml:"scryptr"`
	ScryptP    int    `yaml:"scryptp"`

	Overwrite     string `yaml:"overwrite"` // overwrite, fail or skip
	CollectErrors bool   `yaml:"collecterrors"`
	Verify        bool   `yaml:"verify"`

	MetricsFile string `yaml:"metricsfile"` // prometheus textfile, disabled when empty
}

// Sanitize will support a lazy user by ensuring that empty config file
// fields are replaced with default values.
func (c *Config) Sanitize() {
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = defaultLogFormat
	}
	if c.OutputDir == "" {
		c.OutputDir = defaultOutputDir
	}
	if c.Passphrase == "" && !c.EmptyPassphrase {
		c.Passphrase = devkeys.Passphrase
	}
	if c.KDF == "" {
		c.KDF = defaultKDF
	}
	if c.Iterations == 0 {
		c.Iterations = defaultIterations
	}
	if c.ScryptN == 0 {
		c.ScryptN = defaultScryptN
	}
	if c.ScryptR == 0 {
		c.ScryptR = defaultScryptR
	}
	if c.ScryptP == 0 {
		c.ScryptP = defaultScryptP
	}
	if c.Overwrite == "" {
		c.Overwrite = defaultOverwrite
	}
}

// Validate checks a sanitized config.
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if err := checkFormat(Format(c.LogFormat), ServiceName); err != nil {
		return err
	}
	if err := c.Params().Validate(); err != nil {
		return err
	}
	if err := keystore.Policy(c.Overwrite).Validate(); err != nil {
		return err
	}
	if c.OutputDir == "" {
		return fmt.Errorf("outputdir must be set")
	}
	if c.EmptyPassphrase && (c.Passphrase != "" || c.PromptPassphrase) {
		return fmt.Errorf("emptypassphrase cannot be combined with passphrase or promptpassphrase")
	}
	return nil
}

// Params returns the key derivation parameters selected by the config.
func (c *Config) Params() keystore.Params {
	return keystore.Params{
		KDF:        c.KDF,
		Iterations: c.Iterations,
		ScryptN:    c.ScryptN,
		ScryptR:    c.ScryptR,
		ScryptP:    c.ScryptP,
	}
}

// InputKeys returns the configured keys, or the compiled-in development keys.
func (c *Config) InputKeys() []string {
	if len(c.Keys) > 0 {
		return c.Keys
	}
	return devkeys.PrivateKeys()
}
