package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/your-org/outfit/internal/errs"
	"github.com/your-org/outfit/internal/recommend"
)

// statusFor maps an error kind to the HTTP status reported to clients.
func statusFor(k errs.Kind) int {
	switch k {
	case errs.KindInput:
		return http.StatusBadRequest
	case errs.KindInference:
		return http.StatusUnprocessableEntity
	case errs.KindExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError reports a classified error, including the failed stage for
// pipeline errors.
func writeError(c *gin.Context, err error) {
	kind := errs.KindOf(err)
	body := gin.H{
		"error": err.Error(),
		"kind":  kind.String(),
	}
	var se *recommend.StageError
	if errors.As(err, &se) {
		body["stage"] = string(se.Stage)
	}
	c.JSON(statusFor(kind), body)
}
