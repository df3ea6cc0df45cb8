/*
Package config provides YAML configuration of the custody vault tools.

Example:

	Logger:
	  Level: info
	  Encoding: console
	Storage:
	  Type: boltdb
	  BoltDBOptions:
	    FilePath: ./vault.bolt
	Vault:
	  Program: NbTiM6h8r99kpRtb428XcsUk1TzKed2gTc
	  Root: vault

Storage.Type defaults to inmemory, which keeps nothing between runs and only
suits tests. Tools inspecting an existing vault require boltdb or leveldb.
*/
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/nspcc-dev/custody-vault/vault"
	"github.com/nspcc-dev/neo-go/pkg/core/storage"
	"github.com/nspcc-dev/neo-go/pkg/core/storage/dbconfig"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Defaults applied by Load and Parse to the omitted fields.
const (
	DefaultLogLevel    = "info"
	DefaultLogEncoding = "console"
	DefaultRoot        = "vault"
)

// Config is the root of the configuration file.
type Config struct {
	Logger  Logger                   `yaml:"Logger"`
	Storage dbconfig.DBConfiguration `yaml:"Storage"`
	Vault   Vault                    `yaml:"Vault"`
}

// Logger configures zap logger.
type Logger struct {
	// One of zap levels: debug, info, warn, error.
	Level string `yaml:"Level"`
	// console or json.
	Encoding string `yaml:"Encoding"`
}

// Vault configures the vault program.
type Vault struct {
	// Neo address of the program ID. vault.DefaultID is used if empty.
	Program string `yaml:"Program"`
	// Root seed of the served vault.
	Root string `yaml:"Root"`
}

// Load reads the configuration from the YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML configuration, applies defaults and validates the
// result. Unknown fields are rejected.
func Parse(data []byte) (*Config, error) {
	var c Config

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	err := dec.Decode(&c)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode YAML: %w", err)
	}

	c.applyDefaults()

	err = c.Validate()
	if err != nil {
		return nil, err
	}

	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Logger.Level == "" {
		c.Logger.Level = DefaultLogLevel
	}
	if c.Logger.Encoding == "" {
		c.Logger.Encoding = DefaultLogEncoding
	}
	// in-memory store is empty on every start, see package docs
	if c.Storage.Type == "" {
		c.Storage.Type = dbconfig.InMemoryDB
	}
	if c.Vault.Root == "" {
		c.Vault.Root = DefaultRoot
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.Logger.Level); err != nil {
		return fmt.Errorf("invalid Logger.Level: %w", err)
	}

	switch c.Logger.Encoding {
	case "console", "json":
	default:
		return fmt.Errorf("invalid Logger.Encoding '%s'", c.Logger.Encoding)
	}

	switch c.Storage.Type {
	case dbconfig.InMemoryDB:
	case dbconfig.LevelDB:
		if c.Storage.LevelDBOptions.DataDirectoryPath == "" {
			return errors.New("missing Storage.LevelDBOptions.DataDirectoryPath")
		}
	case dbconfig.BoltDB:
		if c.Storage.BoltDBOptions.FilePath == "" {
			return errors.New("missing Storage.BoltDBOptions.FilePath")
		}
	default:
		return fmt.Errorf("unsupported Storage.Type '%s'", c.Storage.Type)
	}

	if _, err := c.ProgramID(); err != nil {
		return err
	}

	if len(c.Vault.Root) > vault.MaxRootLen {
		return fmt.Errorf("invalid Vault.Root: exceeds %d bytes", vault.MaxRootLen)
	}

	return nil
}

// NewLogger builds production zap logger with the configured level and
// encoding.
func (c *Config) NewLogger() (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(c.Logger.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}

	cc := zap.NewProductionConfig()
	cc.Level = zap.NewAtomicLevelAt(lvl)
	cc.Encoding = c.Logger.Encoding
	cc.Sampling = nil
	if cc.Encoding == "console" {
		cc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	return cc.Build()
}

// ProgramID returns the configured program ID.
func (c *Config) ProgramID() (util.Uint160, error) {
	if c.Vault.Program == "" {
		return vault.DefaultID, nil
	}

	h, err := address.StringToUint160(c.Vault.Program)
	if err != nil {
		return util.Uint160{}, fmt.Errorf("invalid Vault.Program: %w", err)
	}

	return h, nil
}

// Root returns the configured vault root seed.
func (c *Config) Root() []byte {
	return []byte(c.Vault.Root)
}

// OpenStore opens the configured persistent store.
func (c *Config) OpenStore() (storage.Store, error) {
	st, err := storage.NewStore(c.Storage)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", c.Storage.Type, err)
	}

	return st, nil
}
