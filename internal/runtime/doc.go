// Package runtime is the turn-processing core of Arbor.
//
// An Engine owns the loaded graph, the stage classifier and the handler
// registry, and drives each turn through a fixed pipeline: load or create the
// session, count the turn, ask the NLU collaborator for intent and entities,
// pick a stage, run its handler, merge the proposed changes, route to the next
// node and persist. The whole pipeline runs under the session lock, works on a
// copy of the stored state and writes only when it succeeds.
package runtime
