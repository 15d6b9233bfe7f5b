// Package upstream is the HTTP client for the analytics service.
//
// Every call is bounded by the configured timeout and shares one pooled
// transport. Failures are returned as *Error so callers can tell an
// unreachable service from a service that answered with an error status.
// There are no retries.
package upstream
