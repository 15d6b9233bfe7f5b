// Package adapter shapes aggregated dashboard data per client type.
//
// Adapt is pure: it depends only on its arguments. Client types are a closed
// set; anything unrecognized is treated as web.
package adapter
