package config

const (
	defaultLedgerPath      = "~/.local/share/dscache/ledger.db"
	defaultLogDir          = "~/.local/share/dscache/logs"
	defaultLockFileName    = ".dscache.lock"
	defaultCapacityCeiling = 0.90
	defaultLockRetryMillis = 250
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LedgerPath: defaultLedgerPath,
			LogDir:     defaultLogDir,
		},
		Cache: Cache{
			CapacityCeiling: defaultCapacityCeiling,
			VerifyCopies:    true,
			LockRetryMillis: defaultLockRetryMillis,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
