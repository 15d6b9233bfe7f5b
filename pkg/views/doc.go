// Package views resolves the BFF's read views.
//
// Dashboard and funnel views are cache-aside: a hit is returned as-is, a miss
// is computed and stored with the view's TTL. Callers may bypass the cache,
// in which case nothing is read or written. Realtime statistics and user
// analytics are never cached.
package views
