// Package poller drives fetch cycles: fetch the notice list, detect new
// notices against the cache, fan them out and retire destinations that fail
// permanently. At most one cycle runs at a time.
package poller
