// Package kraken holds the contracts shared by the harvesting and extraction
// packages: the small interfaces each component depends on and the error
// taxonomy used to decide whether a failure is skipped, retried, or fatal.
package kraken
