// Package config provides typed, validated configuration for the Minerva
// core.
//
// Configuration is loaded from a YAML file, filled in with defaults, and
// validated fail-fast before any component sees it. Components receive
// pointers to their own sections and treat them as immutable.
//
// # Loading
//
//	cfg, err := config.LoadConfigWithEnvOverrides("minerva.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//
// Environment variables of the form MINERVA_SECTION_FIELD override file
// values (e.g. MINERVA_PROVIDER_API_KEY, MINERVA_LOG_LEVEL).
//
// # Hot reload
//
// A Watcher can reload the file on change; invalid files are rejected and
// the previous configuration stays active:
//
//	w := config.NewWatcher("minerva.yaml", func(cfg *config.Config) {
//		// swap the active configuration
//	})
//	if err := w.Start(); err != nil {
//		log.Fatal(err)
//	}
//	defer w.Stop()
//
// # Tier limits
//
// UserLimits and AdaptiveLimits implement the tier lookup the budget
// planner depends on. AdaptiveLimits applies a three-band step adjustment
// by conversation length: long conversations shrink the budget, short ones
// grow it up to a bounded ceiling.
package config
