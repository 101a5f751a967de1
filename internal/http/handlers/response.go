// Package handlers provides HTTP handler implementations for the public API.
//
// Every error response is an ErrorResponse with a stable code; validation
// failures also name the rejected field:
//
//	HTTP/1.1 400 Bad Request
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "validation_failed",
//	  "message": "secret: must be at least 4 characters",
//	  "field": "secret"
//	}
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-wedding-backend/internal/http/middleware"
)

// ErrorResponse is the error envelope returned by all endpoints.
type ErrorResponse struct {
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Code is machine-readable; see errors.go.
	Code string `json:"code" example:"not_found"`
	// Message is safe to show to guests.
	Message string `json:"message" example:"resource not found"`
	// Field names the rejected input for validation_failed.
	Field string `json:"field,omitempty" example:"name"`
}

func fail(c *gin.Context, status int, code, msg string) {
	abort(c, status, ErrorResponse{Code: code, Message: msg})
}

func failField(c *gin.Context, status int, code, msg, field string) {
	abort(c, status, ErrorResponse{Code: code, Message: msg, Field: field})
}

// abort writes resp. Server errors are logged with the last error recorded
// on the context, which never reaches the client.
func abort(c *gin.Context, status int, resp ErrorResponse) {
	resp.RequestID = middleware.RequestIDFrom(c)
	if status >= http.StatusInternalServerError {
		ev := middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", resp.Code)
		if last := c.Errors.Last(); last != nil {
			ev = ev.AnErr("cause", last.Err)
		}
		ev.Msg(resp.Message)
	}
	c.AbortWithStatusJSON(status, resp)
}

// Fail lets the router answer its fallbacks with the same envelope.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

func ok(c *gin.Context, status int, body any) { c.JSON(status, body) }

func noContent(c *gin.Context) { c.Status(http.StatusNoContent) }
