package main

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"dscache/internal/cache"
	"dscache/internal/config"
	"dscache/internal/ledger"
	"dscache/internal/lockfile"
	"dscache/internal/logging"
	"dscache/internal/readermark"
	"dscache/internal/remotestore"
)

// commandContext carries lazily constructed dependencies shared by all
// commands: configuration, logger, ledger, and the reader marker registry
// whose markers are dropped when the process ends.
type commandContext struct {
	configFlag  *string
	verboseFlag *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error

	ledgerOnce sync.Once
	ledger     *ledger.Ledger
	ledgerErr  error

	registry *readermark.Registry
}

func newCommandContext(configFlag *string, verboseFlag *bool) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		verboseFlag: verboseFlag,
		registry:    readermark.NewRegistry(),
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		if c.verboseFlag != nil && *c.verboseFlag {
			cfg.Logging.Level = "debug"
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) ensureLedger() (*ledger.Ledger, error) {
	c.ledgerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.ledgerErr = err
			return
		}
		c.ledger, c.ledgerErr = ledger.Open(cfg.Paths.LedgerPath)
	})
	return c.ledger, c.ledgerErr
}

// coordinator assembles the cache coordinator from the shared dependencies.
func (c *commandContext) coordinator() (*cache.Coordinator, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	lgr, err := c.ensureLedger()
	if err != nil {
		return nil, err
	}

	var lock cache.Lock
	if cfg.CachingEnabled() {
		lock = lockfile.NewExclusive(cfg.Paths.LockFile, time.Duration(cfg.Cache.LockRetryMillis)*time.Millisecond)
	}
	store := remotestore.NewFSStore(cfg.Cache.VerifyCopies)
	return cache.New(cfg, store, lock, c.registry, lgr, logger)
}

// shutdown releases every reader marker held by this process and closes the
// ledger. main calls it after Execute returns, on every exit path.
func (c *commandContext) shutdown() {
	c.registry.ReleaseAll()
	if c.ledger != nil {
		_ = c.ledger.Close()
	}
}
