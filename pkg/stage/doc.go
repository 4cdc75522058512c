/*
Package stage assigns dialogue stages to nodes and decides which stage a
conversation should move to next.

Classification trusts a node's declared stage unless the classifier runs with
PolicyRulesOnly. Otherwise every Rule in the table is matched against the
node's Features; matching rules add their weight to their target stage and the
best-scoring stage wins, ties going to the stage with the higher Priority.
Scoring, picking and confidence are pure functions so they can be tested
without a graph.

NextStage encodes the fixed stage-transition table used by routing, and
SelectNode picks a node among candidates of a desired stage.
*/
package stage
