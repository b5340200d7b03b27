// Copyright 2026 The Slotenbot Authors
// SPDX-License-Identifier: Apache-2.0

// Command slotenbot runs the locksmith intake bot.
//
// The bot long-polls Telegram for messages, walks authorized
// technicians through the intervention report fields one question at
// a time, stores completed reports in SQLite, and announces each one
// in the configured group chat.
//
// Configuration is a single YAML file named by SLOTENBOT_CONFIG or
// the --config flag; see lib/config for the schema.
package main
