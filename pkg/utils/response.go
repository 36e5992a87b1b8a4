package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rapidaai/transcript-api/pkg/types"
)

type ApiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, ApiResponse{Success: true, Data: data})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, ApiResponse{Success: true, Data: data})
}

// Failure maps a domain error onto the internal API response surface. The
// caller-facing message wins over the raw error text when provided.
func Failure(c *gin.Context, err error, message string) {
	if IsEmpty(message) {
		message = err.Error()
	}
	c.JSON(types.HttpStatus(err), ApiResponse{Success: false, Error: message})
}

// Ack acknowledges a webhook delivery. Providers treat anything but 2xx as a
// signal to retry, so acknowledgments are unconditional 200s.
func Ack(c *gin.Context) {
	c.JSON(http.StatusOK, ApiResponse{Success: true})
}
