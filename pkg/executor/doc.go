// Package executor contains the stage handlers that produce a reply for one
// turn and propose state changes.
//
// Handlers never persist anything. They read the dialogue state, and return a
// Result carrying the response text, a routing directive and the context and
// slot updates the runtime should apply. A Registry maps stages to handlers,
// creating each handler lazily and reusing it for every session, so handlers
// must not keep per-session state.
package executor
