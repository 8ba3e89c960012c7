package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ATMackay/dev-keystore/generator"
	"github.com/vrischmann/envconfig"
	yaml "gopkg.in/yaml.v3"
)

const envPrefix = "DEV_KEYSTORE"

var (
	configFilePtr = flag.String("config", "config.yml", "path to config file")
	versionPtr    = flag.Bool("version", false, "print version and exit")
)

// RUN WITH DEFAULTS (writes the ten dev keys to ./keys/dev)
// $ go run ./cmd
// $ go run ./cmd --config {path_to_config_file}
//
// OR RUN WITH ENVIRONMENT VARIABLES
//
// $ go build -o dev-keystore ./cmd
// $ export DEV_KEYSTORE_OUTPUT_DIR=/tmp/keys
// $ export DEV_KEYSTORE_CREATE_OUTPUT_DIR=true
// $ ./dev-keystore
//

// parseYAMLConfig parse configuration file or environment variables, receiver must be a pointer
func parseYAMLConfig(configFile string, receiver any, prefix string) error {
	b, err := os.ReadFile(filepath.Clean(configFile))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	if b != nil {
		if err := yaml.Unmarshal(b, receiver); err != nil {
			return err
		}
	}
	// environment variables supersede config yaml files
	if err := envconfig.InitWithOptions(receiver, envconfig.Options{Prefix: prefix, AllOptional: true}); err != nil {
		return err
	}
	return nil
}

func main() {
	flag.Parse()
	if *versionPtr {
		fmt.Println(generator.FullVersion)
		return
	}

	var cfg generator.Config

	if err := parseYAMLConfig(*configFilePtr, &cfg, envPrefix); err != nil {
		panic(fmt.Sprintf("error parsing config: %v", err))
	}

	cfg.Sanitize()

	l, err := cfg.Logger()
	if err != nil {
		panic(err)
	}

	if _, err := generator.Execute(cfg, l, os.Stdin, os.Stdout, os.Stderr); err != nil {
		l.WithError(err).Error("generation failed")
		os.Exit(1)
	}
}
