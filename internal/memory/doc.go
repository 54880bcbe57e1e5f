// Package memory implements the three memory tiers behind the workforce:
//
//   - Tier 1, session: an in-memory transcript scoped to a single request,
//     discarded when the request completes.
//   - Tier 2, domain state: one JSON file per agent under .workforce/state/,
//     tracking task progress and pinned notes across sessions.
//   - Tier 3, brain: a persistent SQLite store of WHEN-DO-RESULT learnings
//     and request episodes, recalled by keyword score with an optional
//     embedding re-rank.
package memory
