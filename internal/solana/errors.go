package solana

import "fmt"

// NetworkError wraps transport-level failures (connection refused, timeout,
// HTTP 429/5xx). These are transient: the client retries them with backoff
// before giving up, and callers may retry the whole operation.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// RPCError is a JSON-RPC 2.0 error returned by the node. The node answered,
// so retrying the same request is pointless. Never retried.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}
