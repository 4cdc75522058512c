/*
Package ports defines the driven ports (interfaces) for the Arbor engine.

These interfaces decouple the dialogue core from external implementations, allowing
the engine to work with various session stores and language services.

# Key Interfaces

  - SessionStore: Responsible for persisting and loading per-session DialogueState.
  - DistributedLocker: Provides distributed locking for handling concurrent session access.
  - IntentExtractor: Annotates a user message with intent, entities, stage and confidence.
  - ResponseGenerator: Phrases a reply for a node and scenario.
*/
package ports
