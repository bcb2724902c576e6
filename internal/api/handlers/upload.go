package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

type upload struct {
	data        []byte
	filename    string
	contentType string
}

// readImage reads the "image" form file, bounded by maxBytes. It writes the
// error response itself and returns false on failure.
func readImage(c *gin.Context, maxBytes int64) (*upload, bool) {
	if maxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	}

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image too large"})
			return nil, false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file required"})
		return nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read image failed"})
		return nil, false
	}

	return &upload{
		data:        data,
		filename:    header.Filename,
		contentType: header.Header.Get("Content-Type"),
	}, true
}
