// Package extract projects stored matches into flat rows: a basic per-player
// CSV and player- and team-level Parquet tables. Pre-game and post-game
// columns live in separate struct types so downstream code can read only
// what is known at draft time.
package extract
