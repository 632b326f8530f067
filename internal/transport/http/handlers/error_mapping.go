package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorCase binds one sentinel error to the status and message it maps to.
type ErrorCase struct {
	Err     error
	Status  int
	Message string
}

// RespondWithMappedError walks the case table with errors.Is and writes
// the matching response. Unknown errors get the fallback so internals
// never leak to clients.
func RespondWithMappedError(c *gin.Context, err error, cases []ErrorCase, fallbackStatus int, fallbackMessage string) {
	if err == nil {
		c.Status(http.StatusOK)
		return
	}

	for _, known := range cases {
		if known.Err != nil && errors.Is(err, known.Err) {
			c.JSON(known.Status, NewErrorResponse(c, known.Message))
			return
		}
	}

	c.JSON(fallbackStatus, NewErrorResponse(c, fallbackMessage))
}
