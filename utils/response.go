package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// JSONResponse defines the uniform structure for API responses.
type JSONResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Respond writes a JSON response with the given status code.
func Respond(ctx *gin.Context, status int, code int, message string, data interface{}) {
	ctx.JSON(status, JSONResponse{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

// Success returns a standard success response.
func Success(ctx *gin.Context, data interface{}) {
	Respond(ctx, http.StatusOK, 0, "success", data)
}

// Error returns a standard error response.
func Error(ctx *gin.Context, status int, code int, message string) {
	Respond(ctx, status, code, message, nil)
}

// Named helpers covering the error taxonomy. The business code distinguishes
// call sites within a status family.

func BadRequest(ctx *gin.Context, code int, message string) {
	Error(ctx, http.StatusBadRequest, code, message)
}

func Unauthorized(ctx *gin.Context, code int, message string) {
	Error(ctx, http.StatusUnauthorized, code, message)
}

func Forbidden(ctx *gin.Context, code int, message string) {
	Error(ctx, http.StatusForbidden, code, message)
}

func NotFound(ctx *gin.Context, code int, message string) {
	Error(ctx, http.StatusNotFound, code, message)
}

func Conflict(ctx *gin.Context, code int, message string) {
	Error(ctx, http.StatusConflict, code, message)
}

func Internal(ctx *gin.Context, code int, message string) {
	Error(ctx, http.StatusInternalServerError, code, message)
}
