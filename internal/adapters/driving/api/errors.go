package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields,omitempty"`
}

// statusFor maps a domain error to an HTTP status and a stable code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrUnknownModel):
		return http.StatusBadRequest, "unknown_model"
	case errors.Is(err, domain.ErrEmptyInput):
		return http.StatusBadRequest, "empty_input"
	case errors.Is(err, domain.ErrTooManyFiles):
		return http.StatusBadRequest, "too_many_files"
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, "invalid"
	case errors.Is(err, domain.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, "file_too_large"
	case errors.Is(err, domain.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType, "unsupported_type"
	case errors.Is(err, domain.ErrLLMUnavailable),
		errors.Is(err, domain.ErrEmbeddingUnavailable),
		errors.Is(err, domain.ErrVectorIndexUnavailable),
		errors.Is(err, domain.ErrRetrievalUnavailable):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, domain.ErrIndexWrite):
		return http.StatusBadGateway, "index_write"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// handleError writes err as a JSON error response.
func handleError(c *gin.Context, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	} else {
		logger.Debug("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	c.AbortWithStatusJSON(status, errorBody{Error: message, Code: code})
}

// handleBindError writes a request decoding or validation failure.
func handleBindError(c *gin.Context, err error) {
	body := errorBody{Error: "invalid request", Code: "invalid"}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		body.Fields = make(map[string]string, len(verrs))
		for _, fe := range verrs {
			body.Fields[fe.Field()] = fmt.Sprintf("failed on '%s' tag", fe.Tag())
		}
	} else {
		body.Error = err.Error()
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, body)
}
