// Copyright 2026 The Slotenbot Authors
// SPDX-License-Identifier: Apache-2.0

// Package report persists completed intervention reports in SQLite.
//
// The table is append-mostly: one row per completed submission, plus a
// status column the group can flip from pending to done. Value columns
// are named in the open configuration, with additive migration for
// columns added after the database was created. The package knows
// nothing about the conversation that produced the values: callers
// pass the column list at open time, keyed however they collect.
//
// A report row is only ever written whole — Insert checks that every
// configured column has a value before touching the database.
package report
