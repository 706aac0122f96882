// Package config loads tavernvault settings.
//
// Settings come from three layers, later layers winning:
//
//  1. built-in defaults (Default)
//  2. config.toml in the user config directory, or the file named by
//     TAVERN_CONFIG
//  3. environment variables: TAVERN_DATA_DIR, TAVERN_SERVICE, TAVERN_KEYRING
//
// Relative backups_dir and state_file values are resolved against data_dir.
package config
