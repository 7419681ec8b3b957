// Package rpc implements the gRPC transport used to reach out-of-process
// middlewares: the wire message shapes from spec.md §6, a lightweight JSON
// codec standing in for protobuf code generation (see SPEC_FULL.md §4.G),
// and the client used by the Middleware Endpoint.
package rpc

// HeaderField mirrors spec.md's {name, value} wire pair.
type HeaderField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Status is the wire-level enum carried on RequestResponse/ResponseResponse
// (spec.md §6: Success=0, Continue=1, Stop=2).
type Status int32

const (
	StatusSuccess  Status = 0
	StatusContinue Status = 1
	StatusStop     Status = 2
)

// RequestRequest is the handle_request RPC payload (spec.md §6).
type RequestRequest struct {
	Method  string        `json:"method"`
	URI     string        `json:"uri"`
	Headers []HeaderField `json:"headers"`
	Body    string        `json:"body"`
}

// RequestResponse is the handle_request RPC result (spec.md §6).
type RequestResponse struct {
	Status         Status        `json:"status"`
	AddedHeaders   []HeaderField `json:"added_headers"`
	RemovedHeaders []string      `json:"removed_headers"`
	Body           *string       `json:"body,omitempty"`
	StatusCode     *uint32       `json:"status_code,omitempty"`
}

// ResponseRequest is the handle_response RPC payload (spec.md §6).
type ResponseRequest struct {
	Method          string        `json:"method"`
	URI             string        `json:"uri"`
	RequestHeaders  []HeaderField `json:"request_headers"`
	ResponseHeaders []HeaderField `json:"response_headers"`
	RequestBody     string        `json:"request_body"`
	ResponseBody    string        `json:"response_body"`
}

// ResponseResponse is the handle_response RPC result; same shape as
// RequestResponse (spec.md §6).
type ResponseResponse = RequestResponse
