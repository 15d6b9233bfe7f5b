// Package aggregator gathers dashboard and realtime inputs from the upstream.
//
// Calls run concurrently and each records its own outcome in a Slot. The
// join always waits for every call; failed slots are replaced with typed
// defaults by Resolve.
package aggregator
