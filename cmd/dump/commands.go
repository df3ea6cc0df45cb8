package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/nspcc-dev/custody-vault/config"
	"github.com/nspcc-dev/custody-vault/custody"
	"github.com/nspcc-dev/custody-vault/dump"
	"github.com/nspcc-dev/neo-go/pkg/core/storage"
	"github.com/nspcc-dev/neo-go/pkg/core/storage/dbconfig"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/urfave/cli"
	"go.uber.org/zap"
)

var allFlag = cli.BoolFlag{
	Name:  "all",
	Usage: "Process all vaults instead of the configured one",
}

// env is the opened configuration of the command.
type env struct {
	cfg   *config.Config
	log   *zap.Logger
	store storage.Store
	vault util.Uint160
}

func openEnv(c *cli.Context) (*env, error) {
	path := c.GlobalString("config")
	if path == "" {
		return nil, errors.New("missing config file")
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if cfg.Storage.Type == dbconfig.InMemoryDB {
		return nil, fmt.Errorf("%s storage holds no vault state, configure %s or %s",
			dbconfig.InMemoryDB, dbconfig.BoltDB, dbconfig.LevelDB)
	}

	log, err := cfg.NewLogger()
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	program, err := cfg.ProgramID()
	if err != nil {
		return nil, err
	}

	st, err := cfg.OpenStore()
	if err != nil {
		return nil, err
	}

	return &env{
		cfg:   cfg,
		log:   log,
		store: st,
		vault: custody.VaultAddress(program, cfg.Root()),
	}, nil
}

func (e *env) close() {
	if err := e.store.Close(); err != nil {
		e.log.Warn("failed to close store", zap.Error(err))
	}
	_ = e.log.Sync()
}

func (e *env) filter(c *cli.Context, s dump.Snapshot) dump.Snapshot {
	if c.Bool("all") {
		return s
	}
	return s.Filter(e.vault)
}

func showAction(c *cli.Context) error {
	e, err := openEnv(c)
	if err != nil {
		return err
	}
	defer e.close()

	s, err := dump.Collect(e.store)
	if err != nil {
		return fmt.Errorf("collect state: %w", err)
	}

	return e.filter(c, s).WriteJSON(os.Stdout)
}

func dumpAction(c *cli.Context) error {
	e, err := openEnv(c)
	if err != nil {
		return err
	}
	defer e.close()

	label := c.String("label")
	if label == "" {
		return errors.New("missing dump label")
	}

	dir := c.String("dir")

	err = os.MkdirAll(dir, 0700)
	if err != nil {
		return fmt.Errorf("create dump dir: %w", err)
	}

	id := dump.ID{Label: label, Time: time.Now().Unix()}

	s, err := dump.Save(dir, id, e.store)
	if err != nil {
		return fmt.Errorf("save dump: %w", err)
	}

	e.log.Info("vault state dumped",
		zap.String("dir", dir), zap.Stringer("id", id),
		zap.Int("vaults", len(s.Vaults)), zap.Int("balances", len(s.Balances)),
		zap.Int("stale", len(s.Stale())))

	return nil
}

func auditAction(c *cli.Context) error {
	e, err := openEnv(c)
	if err != nil {
		return err
	}
	defer e.close()

	var stale int

	report := func(source string, s dump.Snapshot) {
		s = e.filter(c, s)

		for _, b := range s.Stale() {
			stale++
			held := b.Held
			if b.Missing {
				held = "missing"
			}
			fmt.Printf("%s: record %s (vault %s, asset %s, depositor %s): mirror %s, custody %s\n",
				source, b.Record, b.Vault, b.Asset, b.Depositor, b.Mirror, held)
		}

		e.log.Info("audit completed", zap.String("source", source),
			zap.Int("balances", len(s.Balances)), zap.Int("stale", len(s.Stale())))
	}

	if dir := c.String("dir"); dir != "" {
		err = dump.IterateDumps(dir, func(id dump.ID, r *dump.Reader) {
			report(id.String(), r.Snapshot())
		})
		if err != nil {
			return fmt.Errorf("read dumps: %w", err)
		}
	} else {
		s, err := dump.Collect(e.store)
		if err != nil {
			return fmt.Errorf("collect state: %w", err)
		}
		report("store", s)
	}

	if stale > 0 {
		return cli.NewExitError(fmt.Sprintf("%d stale balance mirrors", stale), 1)
	}

	return nil
}
