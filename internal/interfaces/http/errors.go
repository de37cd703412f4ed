package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aflo-dev/aflo/internal/domain/apperr"
)

// ErrorResponse is the envelope of every failed request
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody carries the error kind and a client-facing message
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// StatusOf maps an error kind to its HTTP status
func StatusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindInvalidParameterValue:
		return http.StatusBadRequest
	case apperr.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError aborts the request with the envelope for err. Internal errors
// are logged and their details withheld from the client.
func writeError(c *gin.Context, logger Logger, err error) {
	kind := apperr.KindOf(err)
	status := StatusOf(kind)
	message := apperr.MessageOf(err)
	if status == http.StatusInternalServerError {
		logger.Error("Request failed", "method", c.Request.Method, "path", c.Request.URL.Path, "error", err)
		message = "internal error"
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorBody{Code: string(kind), Message: message},
	})
}

// badRequest reports a malformed body or query
func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
		Error: ErrorBody{Code: string(apperr.KindInvalidParameterValue), Message: err.Error()},
	})
}
