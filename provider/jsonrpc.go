package provider

import (
	"encoding/json"
)

// rpcError is the JSON-RPC 2.0 error object, parsed only as far as the
// classifier needs.
type rpcError struct {
	Code    int64  `json:"code"`
	Message string `json:"message"`
}

// rpcResponse is the subset of a JSON-RPC 2.0 response envelope inspected by
// the classifier. Result and id are irrelevant here and left unparsed.
type rpcResponse struct {
	Error *rpcError `json:"error"`
}

// parseRPCResponse parses body as a JSON-RPC response envelope.
// A body that is not valid JSON, or not an object, yields (nil, false);
// classification then degrades to pass-through.
func parseRPCResponse(body []byte) (*rpcResponse, bool) {
	var resp rpcResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, false
	}
	return &resp, true
}
