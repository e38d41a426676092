package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mesh-intelligence/shoerack/pkg/types"
)

// APIError is the JSON error envelope returned by every handler.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

func newAPIError(status int, code, message string) *APIError {
	return &APIError{Status: status, Code: code, Message: message}
}

func badRequest(code, message string) *APIError {
	return newAPIError(http.StatusBadRequest, code, message)
}

// errorStatus maps domain sentinels to HTTP status and error code.
var errorStatus = []struct {
	err    error
	status int
	code   string
}{
	{types.ErrShoeNotFound, http.StatusNotFound, "shoe_not_found"},
	{types.ErrNotFound, http.StatusNotFound, "not_found"},
	{types.ErrActivityNotFound, http.StatusNotFound, "activity_not_found"},
	{types.ErrShoeRestricted, http.StatusForbidden, "shoe_restricted"},
	{types.ErrConflict, http.StatusConflict, "conflict"},
	{types.ErrInvalidName, http.StatusBadRequest, "invalid_name"},
	{types.ErrInvalidLifespan, http.StatusBadRequest, "invalid_lifespan"},
	{types.ErrInvalidRunCategory, http.StatusBadRequest, "invalid_run_category"},
	{types.ErrInvalidMode, http.StatusBadRequest, "invalid_mode"},
	{types.ErrEmptyCategories, http.StatusBadRequest, "empty_categories"},
	{types.ErrInvalidID, http.StatusBadRequest, "invalid_id"},
	{types.ErrInvalidData, http.StatusBadRequest, "invalid_data"},
	{types.ErrNotOpen, http.StatusServiceUnavailable, "unavailable"},
}

// fromError converts err into an APIError. Unknown errors become a 500
// without leaking their text.
func fromError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	for _, m := range errorStatus {
		if errors.Is(err, m.err) {
			return newAPIError(m.status, m.code, err.Error())
		}
	}
	return newAPIError(http.StatusInternalServerError, "internal_error", "internal server error")
}

func writeError(c *gin.Context, err error) {
	apiErr := fromError(err)
	body := gin.H{
		"code":    apiErr.Code,
		"message": apiErr.Message,
	}
	if apiErr.Details != nil {
		body["details"] = apiErr.Details
	}
	c.JSON(apiErr.Status, gin.H{"error": body})
}
