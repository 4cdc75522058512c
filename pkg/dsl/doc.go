/*
Package dsl builds Arbor dialogue graphs in Go instead of YAML.

Nodes are declared with a fluent builder and compiled through the same
normalization path as configuration files, so a built graph behaves exactly
like its YAML equivalent.

	b := dsl.New()

	b.Add("welcome").
		Stage(domain.StageGreeting).
		Say("Hi! How many people are coming?").
		Go("collect_party")

	b.Add("collect_party").
		Require("party_size").
		Branch("large_group", dsl.Field("slots.party_size", "greater_than", 8)).
		Go("done")

	b.Add("large_group").Say("Let me find a bigger table.").Go("done")
	b.Add("done").Say("See you soon.")

	g, err := b.Build()
	// ... arbor.New("", arbor.WithGraph(g))
*/
package dsl
