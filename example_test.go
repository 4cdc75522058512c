package arbor_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/pkg/graph"
)

// ExampleNew_memory builds the graph in code and keeps sessions in memory.
func ExampleNew_memory() {
	g, err := graph.Parse([]byte(`
welcome:
  description: Greet the visitor
  responses:
    default: "Welcome to Arbor."
  next_nodes: [bye]
bye:
  responses:
    default: "Goodbye."
`))
	if err != nil {
		log.Fatal(err)
	}

	eng, err := arbor.New("", arbor.WithGraph(g))
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	if _, err := eng.StartSession(ctx, "demo"); err != nil {
		log.Fatal(err)
	}
	res, err := eng.ProcessTurn(ctx, "demo", "hello")
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(res.Response)
	fmt.Println(res.CurrentNode, res.SessionComplete, res.Context.EndReason)
	// Output:
	// Welcome to Arbor.
	//
	// Goodbye.
	// bye true reached_end
}
