// Package handlers exposes the tower directory, visit log and preferences
// over HTTP.
package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	apierrors "github.com/stwalsh4118/bellfinder/internal/errors"
)

// MaxUploadBytes bounds Dove files and visit backups sent to the import
// endpoints.
const MaxUploadBytes = 32 << 20

// uploadField is the multipart form field holding an uploaded file.
const uploadField = "file"

// respondBindError answers a failed ShouldBind call: field messages for
// validation failures, a generic 400 otherwise.
func respondBindError(c *gin.Context, err error, message string) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		apierrors.ValidationError(c, validationErrors)
		return
	}
	apierrors.BadRequest(c, message, nil)
}

// pathID parses a positive integer path parameter. It writes a 400 and
// returns false when the parameter is malformed.
func pathID(c *gin.Context, name, what string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		apierrors.BadRequest(c, "Invalid "+what+" id", map[string]interface{}{
			name: c.Param(name),
		})
		return 0, false
	}
	return id, true
}

// openUpload returns the uploaded file: the "file" part of a multipart
// form, or the raw request body for any other content type. The body is
// capped at MaxUploadBytes.
func openUpload(c *gin.Context) (io.ReadCloser, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadBytes)

	if c.ContentType() != gin.MIMEMultipartPOSTForm {
		return c.Request.Body, nil
	}

	header, err := c.FormFile(uploadField)
	if err != nil {
		return nil, err
	}
	return header.Open()
}

// respondUploadError maps a failure to read an upload.
func respondUploadError(c *gin.Context, err error) {
	if uploadTooLarge(c, err) {
		return
	}
	apierrors.BadRequest(c, "Missing upload: send the file as the request body or a multipart \"file\" field", nil)
}

// uploadTooLarge writes a 413 when err came from the MaxUploadBytes cap.
func uploadTooLarge(c *gin.Context, err error) bool {
	var tooLarge *http.MaxBytesError
	if !errors.As(err, &tooLarge) {
		return false
	}
	apierrors.PayloadTooLarge(c, tooLarge.Limit)
	return true
}
