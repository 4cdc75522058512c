/*
Package observability turns engine lifecycle events into Prometheus metrics and
structured log lines.

Both are plain domain.LifecycleHooks values, so they compose with each other
and with caller hooks through LifecycleHooks.Merge.
*/
package observability
