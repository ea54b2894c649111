// Package config builds the single configuration value that every modman
// component receives.
//
// Configuration is layered:
//
//  1. built-in defaults (Default)
//  2. an optional file, YAML (.yaml, .yml) or CUE (.cue)
//  3. environment overrides: MODMAN_ROOT, MODMAN_MICROMAMBA, LOG_LEVEL
//  4. the --root flag
//
// Directory paths left empty are derived from Root, relative paths are
// resolved against it, and the result is checked with validator struct tags.
// CUE files are additionally unified with the #Config schema before decoding,
// so type errors are reported with file positions.
//
// A minimal YAML file:
//
//	root: /opt/modules
//	channels: [conda-forge, bioconda]
//	remote:
//	  retries: 5
//	  retry_delay: 3s
//	ledger:
//	  enabled: false
//
// The same in CUE:
//
//	root:     "/opt/modules"
//	channels: ["conda-forge", "bioconda"]
//	remote: {retries: 5, retry_delay: "3s"}
package config
