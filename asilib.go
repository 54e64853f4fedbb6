// Package asilib provides unified access to all-sky imager (ASI) data from
// the REGO, THEMIS, and TREx instrument networks.
//
// The root package holds the core data model: frames, time ranges, imager
// metadata, and the Imager type that ties a loaded image sequence to its
// calibration. Network-specific constructors live in the asi package;
// rendering lives in the plot package.
package asilib

// Version is the library version, surfaced by the CLI.
const Version = "0.12.0"

// Network identifies an ASI instrument array.
type Network string

// Supported instrument networks.
const (
	REGO    Network = "REGO"
	THEMIS  Network = "THEMIS"
	TRExRGB Network = "TREX_RGB"
	TRExNIR Network = "TREX_NIR"
)

// Networks lists every supported network identifier.
func Networks() []Network {
	return []Network{REGO, THEMIS, TRExRGB, TRExNIR}
}

// Valid reports whether n is a known network identifier.
func (n Network) Valid() bool {
	switch n {
	case REGO, THEMIS, TRExRGB, TRExNIR:
		return true
	}
	return false
}
