/*
Package arbor is a graph-driven dialogue orchestrator for building task-oriented
conversational agents.

A conversation is described as a directed graph of nodes. Each node declares its
stage (greeting, slot filling, validation, confirmation, completion...) or has one
inferred from its name, text and position in the graph. Every user message is a
turn: the engine loads the session, asks the NLU collaborator what the message
means, lets the handler for the node's stage produce a reply and propose slot and
context updates, picks the next node and persists the result.

# Key Features

  - Pluggable NLU/NLG: any ports.IntentExtractor and ports.ResponseGenerator.
    The engine keeps working (with templates) when they fail.
  - Pluggable persistence: memory, file, redis and sqlite stores, all with TTLs.
  - Safe concurrency: turns on one session are serialized, optionally across
    processes through a distributed lock.
  - Failure isolation: a failing turn never corrupts the stored session.

# Usage

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/aretw0/arbor"
	)

	func main() {
		eng, err := arbor.New("./booking.yaml")
		if err != nil {
			log.Fatal(err)
		}

		ctx := context.Background()
		start, err := eng.StartSession(ctx, "")
		if err != nil {
			log.Fatal(err)
		}

		res, err := eng.ProcessTurn(ctx, start.SessionID, "hi, I'd like to book a table")
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(res.Response, res.CurrentNode, res.SessionComplete)
	}
*/
package arbor
