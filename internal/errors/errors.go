// Package errors writes the JSON error envelope returned by every API
// endpoint: {"error":{"code","message","details","request_id"}}.
package errors

import (
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/stwalsh4118/bellfinder/internal/middleware"
)

// Error code constants for standardized error responses
const (
	ErrNotFound           = "NOT_FOUND"
	ErrBadRequest         = "BAD_REQUEST"
	ErrInternalServer     = "INTERNAL_SERVER_ERROR"
	ErrValidation         = "VALIDATION_ERROR"
	ErrFeedRejected       = "FEED_REJECTED"
	ErrPayloadTooLarge    = "PAYLOAD_TOO_LARGE"
	ErrDatabaseConnection = "DATABASE_CONNECTION_ERROR"
)

// ErrorResponse is the top-level error response structure.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the error information.
type ErrorDetail struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

var (
	translatorMu sync.RWMutex
	translator   ut.Translator
)

// RegisterTranslations installs English messages for the validator's tags
// and reports fields by their JSON names. ValidationError uses them once
// registered.
func RegisterTranslations(v *validator.Validate) error {
	english := en.New()
	uni := ut.New(english, english)
	trans, _ := uni.GetTranslator("en")

	if err := en_translations.RegisterDefaultTranslations(v, trans); err != nil {
		return err
	}
	v.RegisterTagNameFunc(jsonFieldName)

	translatorMu.Lock()
	translator = trans
	translatorMu.Unlock()
	return nil
}

func jsonFieldName(f reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

func currentTranslator() ut.Translator {
	translatorMu.RLock()
	defer translatorMu.RUnlock()
	return translator
}

// respond logs at warn for client errors and sends the envelope.
func respond(c *gin.Context, status int, code, message string, details map[string]interface{}) {
	requestID := middleware.GetRequestID(c)

	if log := middleware.GetLogger(c); log != nil && status < http.StatusInternalServerError {
		fields := map[string]interface{}{
			"code":       code,
			"message":    message,
			"request_id": requestID,
			"path":       c.Request.URL.Path,
		}
		if details != nil {
			fields["details"] = details
		}
		log.Warn("Request rejected", fields)
	}

	c.JSON(status, ErrorResponse{
		Error: ErrorDetail{
			Code:      code,
			Message:   message,
			Details:   details,
			RequestID: requestID,
		},
	})
}

// NotFound returns a 404 Not Found error response.
func NotFound(c *gin.Context, message string) {
	respond(c, http.StatusNotFound, ErrNotFound, message, nil)
}

// BadRequest returns a 400 Bad Request error response with optional details.
func BadRequest(c *gin.Context, message string, details map[string]interface{}) {
	respond(c, http.StatusBadRequest, ErrBadRequest, message, details)
}

// FeedRejected returns a 422 response for a Dove file that could not be
// imported. The stored directory is unchanged when this is sent.
func FeedRejected(c *gin.Context, message string, details map[string]interface{}) {
	respond(c, http.StatusUnprocessableEntity, ErrFeedRejected, message, details)
}

// PayloadTooLarge returns a 413 response for an upload over limit bytes.
func PayloadTooLarge(c *gin.Context, limit int64) {
	respond(c, http.StatusRequestEntityTooLarge, ErrPayloadTooLarge, "Upload exceeds the size limit", map[string]interface{}{
		"limit_bytes": limit,
	})
}

// InternalServerError returns a 500 Internal Server Error response.
// The error is logged but never sent to the client.
func InternalServerError(c *gin.Context, message string, err error) {
	requestID := middleware.GetRequestID(c)

	if log := middleware.GetLogger(c); log != nil {
		log.Error("Internal server error", err, map[string]interface{}{
			"message":    message,
			"request_id": requestID,
			"path":       c.Request.URL.Path,
			"method":     c.Request.Method,
		})
	}

	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error: ErrorDetail{
			Code:      ErrInternalServer,
			Message:   message,
			RequestID: requestID,
		},
	})
}

// ValidationError returns a 400 Bad Request error response with one message
// per failing field.
func ValidationError(c *gin.Context, validationErrors validator.ValidationErrors) {
	trans := currentTranslator()

	details := make(map[string]interface{}, len(validationErrors))
	for _, err := range validationErrors {
		msg := ""
		if trans != nil {
			msg = err.Translate(trans)
		}
		if msg == "" {
			msg = formatValidationError(err)
		}
		details[err.Field()] = msg
	}

	respond(c, http.StatusBadRequest, ErrValidation, "Validation failed for one or more fields", details)
}

// formatValidationError is the fallback message for a tag without a
// registered translation.
func formatValidationError(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "This field is required"
	case "min":
		return "Value is too short or small (minimum: " + err.Param() + ")"
	case "max":
		return "Value is too long or large (maximum: " + err.Param() + ")"
	case "gt":
		return "Must be greater than " + err.Param()
	case "gte":
		return "Must be greater than or equal to " + err.Param()
	case "lt":
		return "Must be less than " + err.Param()
	case "lte":
		return "Must be less than or equal to " + err.Param()
	case "oneof":
		return "Must be one of: " + err.Param()
	case "datetime":
		return "Must be a date in the form " + err.Param()
	case "excludesall":
		return "Must not contain any of: " + err.Param()
	default:
		return "Validation failed for tag: " + err.Tag()
	}
}
