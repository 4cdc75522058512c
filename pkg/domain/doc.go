/*
Package domain contains the core models of the arbor dialogue engine.

It defines the entities that every other package exchanges: graph Nodes and
their stage labels, the per-session DialogueState with its Slots and typed
TurnContext, and the TurnResult snapshot returned to callers. The package is
kept free of I/O so it can be shared by adapters and the runtime alike.

# Key Entities

  - Node: a dialogue stage in the conversation graph, immutable once loaded.
  - Stage: the coarse purpose of a node (greeting, slot_filling, confirmation...).
  - DialogueState: the unit of persistence for one session.
  - TurnContext: last-turn signals (intent, stage, counters, visited nodes).
  - TurnResult: the response text plus a structured snapshot of the session.
*/
package domain
