package container

// Status is the tagged variant a middleware returns for one phase call
// (spec.md §3 "Outcome", §6 ResponseStatus enum).
type Status int

const (
	// StatusSuccess applies the outcome's mutations and continues the chain.
	StatusSuccess Status = iota
	// StatusContinue discards the outcome's payload entirely and continues.
	StatusContinue
	// StatusStop halts the pipeline and returns a synthesized response.
	StatusStop
)

// StatusFromWire maps the RPC-level status enum onto Status: 0 is Success,
// 1 is Continue, 2 is Stop, and any other value is treated as Continue.
func StatusFromWire(raw int32) Status {
	switch raw {
	case 0:
		return StatusSuccess
	case 1:
		return StatusContinue
	case 2:
		return StatusStop
	default:
		return StatusContinue
	}
}

// Outcome is the decoded result of one middleware call, shared by both the
// request and response phase RPCs (spec.md §6: RequestResponse /
// ResponseResponse share one shape).
type Outcome struct {
	Status         Status
	AddedHeaders   []HeaderField
	RemovedHeaders []string
	Body           *string
	StatusCode     *int
}
