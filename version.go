package arbor

// Version is the arbor release, overridable with
// -ldflags "-X github.com/aretw0/arbor.Version=...".
var Version = "0.4.0"
