package generator

import (
	"errors"
	"io"
	"os"

	"github.com/ATMackay/dev-keystore/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

// Execute performs a complete run from config: it resolves the passphrase,
// prepares the output directory, writes every key and finally dumps the
// metrics textfile when one is configured. cfg must be sanitized.
func Execute(cfg Config, l *logrus.Entry, stdin *os.File, stdout, stderr io.Writer) ([]common.Address, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	l.WithFields(logrus.Fields{
		"compilationTimeStamp": BuildDate,
		"gitCommit":            gitCommitHash,
		"keys":                 len(cfg.InputKeys()),
	}).Infof("starting %v", ServiceName)

	passphrase, err := cfg.ReadPassphrase(stdin, stderr)
	if err != nil {
		return nil, err
	}
	defer clear(passphrase)

	if err := keystore.PrepareDir(cfg.OutputDir, cfg.CreateOutputDir); err != nil {
		return nil, err
	}

	w, err := keystore.NewWriter(cfg.OutputDir, cfg.Params(), keystore.Policy(cfg.Overwrite), cfg.Verify, l)
	if err != nil {
		return nil, err
	}

	g := New(w, l, NewMetrics(), stdout, cfg.CollectErrors)
	addrs, runErr := g.Run(cfg.InputKeys(), passphrase)

	if cfg.MetricsFile != "" {
		if err := g.Metrics().WriteToTextfile(cfg.MetricsFile); err != nil {
			l.WithFields(logrus.Fields{"error": err, "path": cfg.MetricsFile}).Warn("metricsWriteFailed")
			runErr = errors.Join(runErr, err)
		}
	}
	return addrs, runErr
}
