/*
Package session serializes access to dialogue sessions.

A Manager wraps a ports.SessionStore with per-session mutexes (reference
counted so idle sessions leave nothing behind) and, optionally, a
ports.DistributedLocker so that replicas sharing a store never interleave the
load-modify-save cycle of the same session.
*/
package session
