package stack

import (
	"testing"

	"github.com/ATMackay/dev-keystore/generator"
	"github.com/ATMackay/dev-keystore/keystore"
)

// MockGenStack returns a GenStack over a fresh temporary directory using
// light key derivation parameters.
func MockGenStack(t testing.TB, logLevel string, policy keystore.Policy) *GenStack {

	l, err := generator.NewLogger(logLevel, "plain") // change to 'info' or 'debug' to see the generator logs
	if err != nil {
		t.Fatal(err)
	}

	s, err := NewGenStack(t.TempDir(), l, keystore.LightParams, policy, false)
	if err != nil {
		t.Fatal(err)
	}
	return s
}
