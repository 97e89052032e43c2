// Package httpkit holds the shared HTTP response helpers and middleware.
package httpkit

import (
	"net/http"

	"estateflow_backend/platform/apperr"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the JSON shape of every error reply.
type ErrorResponse struct {
	Error   string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

// Error replies with the given status and error message.
func Error(c *gin.Context, status int, message string, details interface{}) {
	c.JSON(status, ErrorResponse{Error: message, Details: details})
}

// OK replies 200 with the payload.
func OK(c *gin.Context, payload interface{}) {
	c.JSON(http.StatusOK, payload)
}

// Created replies 201 with the payload.
func Created(c *gin.Context, payload interface{}) {
	c.JSON(http.StatusCreated, payload)
}

// HandleError writes the HTTP mapping of a service error. Typed errors
// carry their own status via apperr.Kind; anything else is treated as a
// bad request. Reports whether a response was written.
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	if domainErr, ok := err.(*apperr.Error); ok {
		c.JSON(domainErr.HTTPStatus(), ErrorResponse{
			Error:   domainErr.Message,
			Details: domainErr.Details,
		})
		return true
	}

	c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	return true
}
