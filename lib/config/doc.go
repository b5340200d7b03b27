// Copyright 2026 The Slotenbot Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the bot's YAML configuration.
//
// Configuration comes from a single file named by the SLOTENBOT_CONFIG
// environment variable or the --config flag. There is no automatic
// discovery and nothing is read from the environment beyond that one
// variable: one file, read once at startup, validated before use.
package config
