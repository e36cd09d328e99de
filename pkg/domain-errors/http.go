package domainerrors

import "net/http"

// ToHTTPStatus maps a domain error code to the HTTP status the transport
// layer should answer with. Unknown codes map to 500 so a missing entry
// fails loud in monitoring rather than leaking a misleading 4xx.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeValidation, CodeInvalidInput,
		CodeSelfPurchase, CodeInvalidPaymentMethods:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotOwner, CodeNotAuthorized:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeAlreadyListed, CodeInvalidState,
		CodeListingUnavailable, CodeInvariantViolation:
		return http.StatusConflict
	case CodeTimeout:
		return http.StatusGatewayTimeout
	case CodeTransferFailed:
		// Retryable: the transfer did not commit and nothing was applied.
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
