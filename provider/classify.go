package provider

import (
	"strings"
)

// Verdict is the semantic category assigned to an upstream JSON-RPC error,
// used to pick the outward-facing HTTP status. Computed per response, never
// persisted.
type Verdict int

const (
	// VerdictUnclassified preserves the upstream's original status.
	VerdictUnclassified Verdict = iota

	// VerdictRateLimited means the error is transient overload; the
	// response is surfaced as HTTP 429.
	VerdictRateLimited

	// VerdictNodeError means the node itself is unhealthy; the response is
	// surfaced as HTTP 500.
	VerdictNodeError

	// VerdictInternalError means the error code is in the internal range but
	// the message matched no known phrasing. Surfaced like Unclassified (the
	// upstream status is preserved); kept distinct for observability.
	VerdictInternalError
)

func (v Verdict) String() string {
	switch v {
	case VerdictRateLimited:
		return "rate_limited"
	case VerdictNodeError:
		return "node_error"
	case VerdictInternalError:
		return "internal_error"
	default:
		return "unclassified"
	}
}

// IsInternalErrorCode reports whether a JSON-RPC error code signals an
// internal/node failure rather than a caller error (invalid params, method
// not found, ...). Covers -32603 (internal error) and the implementation-
// defined server-error range -32099..-32000.
//
// Codes alone are too coarse for failover decisions: many upstreams reuse
// one generic internal-error code for both transient overload and genuine
// node faults, so message-pattern matching below recovers the distinction.
func IsInternalErrorCode(code int64) bool {
	if code == -32603 {
		return true
	}
	return code >= -32099 && code <= -32000
}

// rateLimitedPatterns are known rate-limit phrasings used by upstreams.
// Matched case-insensitively as substrings.
var rateLimitedPatterns = []string{
	"rate limit",
	"rate-limited",
	"ratelimit",
	"too many requests",
	"quota",
	"capacity exceeded",
	"compute units per second",
}

// nodeErrorPatterns are known node-health phrasings, distinct from
// rate-limiting: missing state, sync lag, upstream-side availability.
var nodeErrorPatterns = []string{
	"header not found",
	"block not found",
	"unknown block",
	"missing trie node",
	"state is not available",
	"not synced",
	"syncing",
	"pruned",
	"request timed out",
	"connection refused",
	"bad gateway",
	"service unavailable",
}

// IsRateLimitedMessage reports whether a JSON-RPC error message matches known
// rate-limit phrasing.
func IsRateLimitedMessage(message string) bool {
	return matchesAny(message, rateLimitedPatterns)
}

// IsNodeErrorMessage reports whether a JSON-RPC error message matches known
// node-health phrasing.
func IsNodeErrorMessage(message string) bool {
	return matchesAny(message, nodeErrorPatterns)
}

func matchesAny(message string, patterns []string) bool {
	lowered := strings.ToLower(message)
	for _, pattern := range patterns {
		if strings.Contains(lowered, pattern) {
			return true
		}
	}
	return false
}

// ClassifyBody inspects a success-status upstream body for a mis-reported
// JSON-RPC error. Classification is only attempted for internal-error codes;
// among those, rate-limit phrasing takes precedence over node-error phrasing.
// Unparseable bodies and bodies without an error object are Unclassified
// (pass-through), never an error.
func ClassifyBody(body []byte) Verdict {
	resp, ok := parseRPCResponse(body)
	if !ok || resp.Error == nil {
		return VerdictUnclassified
	}

	if !IsInternalErrorCode(resp.Error.Code) {
		return VerdictUnclassified
	}
	if IsRateLimitedMessage(resp.Error.Message) {
		return VerdictRateLimited
	}
	if IsNodeErrorMessage(resp.Error.Message) {
		return VerdictNodeError
	}
	return VerdictInternalError
}
