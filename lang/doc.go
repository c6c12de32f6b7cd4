// Package lang resolves language tags for the voice pipeline.
//
// Three pure functions cover the negotiation that threads through every
// stage: Detect scores a raw byte sample against the supported candidate
// set, Normalize folds arbitrary hints onto supported tags, and
// MajorityVote picks the stable mode of a tag sequence. All three are
// deterministic, total, and safe for concurrent use from many sessions.
package lang
