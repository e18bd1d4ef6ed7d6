// Copyright (c) 2026, The Psylab Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package adapt is the overall repository for adaptive trial sequencing and
psychophysical threshold estimation code implemented in the Go language (golang).

This top-level of the repository has no functional code -- everything is organized
into the following sub-packages:

* cond: experimental condition records -- immutable field/value bundles with
optional presentation weights, loaded from delimited condition tables or built
as full factorial crossings.

* trial: the trial Sequencer, which expands a weighted condition list into a
presentation order (sequential, block-shuffled random, or fully random across
the whole run) and steps through it one trial at a time, recording per-trial
data into a missing-aware DataStore organized by condition and repetition.

* stair: adaptive intensity-selection procedures -- the classic N-up/N-down
staircase with reversal-driven step schedules, the QUEST Bayesian threshold
estimator, the Psi (Kontsevich & Tyler) joint threshold/slope estimator, and
a MultiStair interleaver that runs several staircases in shuffled passes.

* session: the Session aggregator, which collects data from any number of
attached loops (sequencers, staircases) into one chronological wide-format
table, one row per committed entry, exportable as delimited text.
*/
package adapt
