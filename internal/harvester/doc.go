// Package harvester runs the crawl loop: drain an identifier from the
// frontier, download its unseen matches through the quota governor, persist
// them and expand the frontier from their participants.
package harvester
