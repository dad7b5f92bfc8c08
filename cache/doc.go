// Package cache holds the most recently seen window of notices and answers
// which notices of a fetched batch have not been seen before.
//
// The snapshot is strictly descending by notice number, holds no duplicate
// numbers and never grows past its configured size. Writers build a new
// slice and swap it in; readers always get copies.
package cache
