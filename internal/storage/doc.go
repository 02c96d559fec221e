// Package storage holds the stub repository: the ordered list of lifecycles,
// a URL lookup cache, per-resource hit counters and the proxy configs used
// for unmatched requests.
//
// A single mutex guards the list, the cache, the counters and every
// lifecycle's sequence cursor. Search is not a pure read: it may fill or
// invalidate the cache, increments a hit counter and advances the matched
// lifecycle's sequence, all as one step.
//
// The cache is keyed by the request's path and query string only. A cached
// lifecycle is re-matched against the full request before use, and a failed
// re-match drops the entry and falls back to a linear scan. Two stubs sharing
// a URL but differing by headers therefore stay correct, at the cost of
// repeated rescans under interleaved traffic.
//
// Resource ids are positional and re-derived after every mutation.
package storage
