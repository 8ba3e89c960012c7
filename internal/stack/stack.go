package stack

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/ATMackay/dev-keystore/generator"
	"github.com/ATMackay/dev-keystore/internal/devkeys"
	"github.com/ATMackay/dev-keystore/keys"
	"github.com/ATMackay/dev-keystore/keystore"
	gethkeystore "github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/sirupsen/logrus"
)

//
// go-ethereum's accounts/keystore package is the reference consumer of the files we write:
// the stack pairs a generator writing into a scratch directory with a geth KeyStore
// opened over the same directory, so tests can check the output end-to-end.
//

// DevAccount is a development key together with its derived address.
type DevAccount struct {
	Key     string
	Address common.Address
}

// DevAccounts derives the addresses of the compiled-in development keys.
func DevAccounts() ([]DevAccount, error) {
	raw := devkeys.PrivateKeys()
	accounts := make([]DevAccount, len(raw))
	for i, k := range raw {
		priv, err := keys.Parse(k)
		if err != nil {
			return nil, fmt.Errorf("dev key %d: %w", i, err)
		}
		accounts[i] = DevAccount{Key: k, Address: keys.Address(priv)}
	}
	return accounts, nil
}

type GenStack struct {
	Dir       string
	Writer    *keystore.Writer
	Generator *generator.Generator
	Out       *bytes.Buffer // console output of the generator
	Accounts  []DevAccount
}

// NewGenStack builds a generator writing into dir, which must exist.
func NewGenStack(dir string, l *logrus.Entry, params keystore.Params, policy keystore.Policy, collectErrors bool) (*GenStack, error) {

	accounts, err := DevAccounts()
	if err != nil {
		return nil, err
	}

	log.SetDefault(log.NewLogger(log.DiscardHandler()))

	if err := keystore.PrepareDir(dir, false); err != nil {
		return nil, err
	}

	w, err := keystore.NewWriter(dir, params, policy, false, l)
	if err != nil {
		return nil, err
	}

	out := new(bytes.Buffer)

	return &GenStack{
		Dir:       dir,
		Writer:    w,
		Generator: generator.New(w, l, nil, out, collectErrors),
		Out:       out,
		Accounts:  accounts,
	}, nil
}

// RunDevKeys feeds the development keys through the generator.
func (s *GenStack) RunDevKeys(passphrase string) ([]common.Address, error) {
	return s.Generator.Run(devkeys.PrivateKeys(), []byte(passphrase))
}

// Files lists the record file names currently in the output directory.
func (s *GenStack) Files() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.Dir, "wallet.*.json"))
	if err != nil {
		return nil, err
	}
	names := make([]string, len(matches))
	for i, m := range matches {
		names[i] = filepath.Base(m)
	}
	sort.Strings(names)
	return names, nil
}

// ReadRecord returns the raw JSON of the record for addr.
func (s *GenStack) ReadRecord(addr common.Address) ([]byte, error) {
	return os.ReadFile(s.Writer.Path(addr))
}

// GethKeyStore opens the output directory with go-ethereum's keystore.
func (s *GenStack) GethKeyStore() *gethkeystore.KeyStore {
	return gethkeystore.NewKeyStore(s.Dir, gethkeystore.LightScryptN, gethkeystore.LightScryptP)
}
