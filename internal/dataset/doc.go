// Package dataset assembles machine-learning tables from the player and
// team Parquet files written by package extract.
//
// Three variants are supported. player-profile-only summarizes each
// player's strictly prior matches in one role. team-outcome keeps one row
// per side with that side's own aggregates. lobby-outcome describes a
// match as it looked in champion select and is built from draft-time
// columns only; the post-game half of the player table is never decoded
// for it.
package dataset
