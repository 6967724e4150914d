// Package config defines the configuration of a node.
//
// A node is started with a configuration directory. The directory holds an
// optional config.toml overriding the defaults of NewDefaultConfig, and every
// relative path in the configuration is resolved against it. A typical
// directory contains:
//
//  config.toml      // optional, node configuration
//  chainspec.toml   // the chainspec, see node.chainspec_config_path
//  accounts.csv     // genesis accounts referenced by the chainspec
//  secret_key       // optional, validator key (cf. casper-node keygen)
//  storage/         // block store and global state, created on first run
package config
