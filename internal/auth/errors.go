package auth

import (
	"net/http"

	"github.com/voice2post/voice2post/internal/respond"
)

const CodeUnauthorized = respond.ErrCodeUnauthorized

// AuthError is the body written for rejected requests.
type AuthError = respond.ErrorResponse

func writeJSONError(w http.ResponseWriter, statusCode int, code, message string) {
	respond.ErrorCode(w, statusCode, code, message)
}
