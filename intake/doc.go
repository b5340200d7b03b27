// Copyright 2026 The Slotenbot Authors
// SPDX-License-Identifier: Apache-2.0

// Package intake implements the conversation that collects an
// intervention report one field per message.
//
// The Schema defines the ordered fields and their validation. The
// Registry owns at most one Session per user and applies every state
// transition: advance on a valid answer, re-prompt on an invalid one,
// cancel, finalize, and idle sweep. The Engine sits on top and turns
// each inbound message into exactly one transition plus a reply,
// calling out to the report store and the group broadcaster when a
// session completes.
//
// Session state lives behind the SessionStore interface and is
// in-memory by default: a restart drops in-flight conversations. Only
// completed reports are durable, and a report is persisted before its
// session is destroyed, so a storage failure leaves the conversation
// retryable.
package intake
