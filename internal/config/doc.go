// Package config loads the settings of a modelundo session.
//
// Configuration is layered, higher layers overriding lower:
//
//	┌─────────────────────────────┐
//	│  3. Environment Variables   │  ← MODELUNDO_UNDO_DEPTH, MODELUNDO_LOG_LEVEL
//	├─────────────────────────────┤
//	│  2. Config File             │  ← .toml, .yaml/.yml or .json5/.json
//	├─────────────────────────────┤
//	│  1. Built-in Defaults       │  ← Lowest priority
//	└─────────────────────────────┘
//
// # Sub-packages
//
//   - loader: file and environment sources, merged into nested maps
//   - watcher: fsnotify-based live reload of the config file
//
// # Configuration Files
//
//	# modelundo.toml
//	[undo]
//	depth = 50
//
//	[log]
//	level = "debug"
//
//	[model]
//	metamodel = "uml.yaml"
//
// A relative metamodel path is resolved against the directory of the
// config file.
package config
