package errors

// ErrorCode is a machine-readable code returned in error responses.
type ErrorCode int32

const (
	ErrorCode_HTTP_OK               ErrorCode = 0
	ErrorCode_INTERNAL              ErrorCode = 1000
	ErrorCode_VALIDATION            ErrorCode = 1001
	ErrorCode_NOT_FOUND             ErrorCode = 1002
	ErrorCode_UNAUTHORIZED          ErrorCode = 2000
	ErrorCode_INVALID_SIGNATURE     ErrorCode = 2001
	ErrorCode_STALE_REQUEST         ErrorCode = 2002
	ErrorCode_PAYLOAD_TOO_LARGE     ErrorCode = 2003
	ErrorCode_RATE_LIMITED          ErrorCode = 2004
	ErrorCode_SERVICE_MISCONFIGURED ErrorCode = 2005
	ErrorCode_UPSTREAM_UNAVAILABLE  ErrorCode = 3000
	ErrorCode_DB_QUERY_FAILED       ErrorCode = 4000
	ErrorCode_DB_TRANSACTION_FAILED ErrorCode = 4001
)

// String returns the symbolic name for the code.
func (c ErrorCode) String() string {
	switch c {
	case ErrorCode_HTTP_OK:
		return "OK"
	case ErrorCode_INTERNAL:
		return "INTERNAL"
	case ErrorCode_VALIDATION:
		return "VALIDATION"
	case ErrorCode_NOT_FOUND:
		return "NOT_FOUND"
	case ErrorCode_UNAUTHORIZED:
		return "UNAUTHORIZED"
	case ErrorCode_INVALID_SIGNATURE:
		return "INVALID_SIGNATURE"
	case ErrorCode_STALE_REQUEST:
		return "STALE_REQUEST"
	case ErrorCode_PAYLOAD_TOO_LARGE:
		return "PAYLOAD_TOO_LARGE"
	case ErrorCode_RATE_LIMITED:
		return "RATE_LIMITED"
	case ErrorCode_SERVICE_MISCONFIGURED:
		return "SERVICE_MISCONFIGURED"
	case ErrorCode_UPSTREAM_UNAVAILABLE:
		return "UPSTREAM_UNAVAILABLE"
	case ErrorCode_DB_QUERY_FAILED:
		return "DB_QUERY_FAILED"
	case ErrorCode_DB_TRANSACTION_FAILED:
		return "DB_TRANSACTION_FAILED"
	}
	return "UNKNOWN"
}
