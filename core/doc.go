// Package core contains the canonical lawcast domain types and the contracts
// the cache, poller and fan-out packages are written against. Adapters for
// storage, transport and job queues depend on this package; core must not
// depend on any of them.
package core
