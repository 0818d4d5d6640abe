// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package soft implements driver on the CPU.
//
// Submitted batches run on a dedicated goroutine that plays the role of the
// GPU timeline: Queue.Execute and Queue.Signal return immediately and the
// fence value advances once the batch has actually run. Resource states are
// tracked on that timeline the way a debug layer would, and every misuse is
// recorded as a violation on the Factory instead of crashing.
//
// The factory reports no hardware adapters. Its WarpAdapter is the only
// adapter and is marked as software, so callers exercise their fallback
// path.
//
// Shader byte code is accepted but not executed. Draws run a pass-through
// stage: POSITION is taken as clip-space coordinates and COLOR is
// interpolated across the triangle. Coverage is computed with
// golang.org/x/image/vector.
package soft
