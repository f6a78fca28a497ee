package errors

// ErrorCode identifies the failure class of an Error.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Configuration errors (100-199)
	ErrCodeInvalidConfiguration ErrorCode = 100
	ErrCodeMissingParameter     ErrorCode = 101

	// Provider errors (200-299)
	ErrCodeProviderFetchFailed       ErrorCode = 200
	ErrCodeProviderMalformedResponse ErrorCode = 201
	ErrCodeProviderNoData            ErrorCode = 202
	ErrCodeInvalidProvider           ErrorCode = 203

	// Validation errors (300-399)
	ErrCodeValidationFailed ErrorCode = 300

	// Storage errors (400-499)
	ErrCodePersistFailed ErrorCode = 400
	ErrCodeQueryFailed   ErrorCode = 401
)

// String returns a short, stable name for the code. It is used as a metrics label.
func (c ErrorCode) String() string {
	switch c {
	case ErrCodeInvalidConfiguration:
		return "invalid_configuration"
	case ErrCodeMissingParameter:
		return "missing_parameter"
	case ErrCodeProviderFetchFailed:
		return "provider_fetch_failed"
	case ErrCodeProviderMalformedResponse:
		return "provider_malformed_response"
	case ErrCodeProviderNoData:
		return "provider_no_data"
	case ErrCodeInvalidProvider:
		return "invalid_provider"
	case ErrCodeValidationFailed:
		return "validation_failed"
	case ErrCodePersistFailed:
		return "persist_failed"
	case ErrCodeQueryFailed:
		return "query_failed"
	default:
		return "unknown"
	}
}
