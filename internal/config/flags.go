package config

import "flag"

var (
	flagConfig       = flag.String("config", "", "Path to config file")
	flagDebug        = flag.Bool("debug", false, "Enable debug logging")
	flagMaxTime      = flag.Duration("max-time", 0, "Collision query time budget (e.g. 20ms)")
	flagLeafSize     = flag.Int("leaf-size", 0, "Triangles per tree leaf")
	flagTimeoutAsHit = flag.Bool("timeout-as-hit", false, "Report timed out collision queries as hits")
)

// ParseFlags parses command-line flags. Call this early in main(); the
// remaining arguments are available from flag.Args.
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via -config.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagMaxTime > 0 {
		cfg.Collision.MaxTime = *flagMaxTime
	}
	if *flagLeafSize > 0 {
		cfg.Collision.LeafSize = *flagLeafSize
	}
	if *flagTimeoutAsHit {
		cfg.Collision.TimeoutAsHit = true
	}
}
