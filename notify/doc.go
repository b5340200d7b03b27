// Copyright 2026 The Slotenbot Authors
// SPDX-License-Identifier: Apache-2.0

// Package notify broadcasts completed reports to the group chat.
//
// The retry policy is an explicit bounded loop — attempt ceiling and
// base delay are plain parameters — so tests can drive it with a fake
// clock and the policy is visible at the call site rather than buried
// in a decorator. Notification failure never rolls back persistence:
// the report is already in the store when Broadcast runs.
package notify
