package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"grocery/internal/apperr"
	"grocery/internal/logging"
	"grocery/internal/middleware"
	"grocery/internal/models"
)

// debugKey marks requests whose 500 responses may carry the underlying cause.
const debugKey = "debug_errors"

func requestLogger(c *gin.Context) *slog.Logger {
	return logging.FromContext(c.Request.Context(), slog.Default())
}

func handlePanic(c *gin.Context, route string) {
	if r := recover(); r != nil {
		requestLogger(c).Error("panic recovered", slog.String("route", route), slog.Any("panic", r))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "internal server error"})
	}
}

// respondError writes err as {message, details}. Unclassified errors are
// logged and reported as a generic server fault.
func respondError(c *gin.Context, route string, err error) {
	appErr := apperr.From(err)
	status := apperr.HTTPStatus(appErr.Kind)
	logger := requestLogger(c)

	body := gin.H{"message": appErr.Message}
	if appErr.Details != nil {
		body["details"] = appErr.Details
	}

	if appErr.Kind == apperr.KindServerFault {
		logger.Error("request failed", slog.String("route", route), slog.Any("error", appErr.Err))
		if id := middleware.RequestIDFrom(c); id != "" {
			body["requestId"] = id
		}
		if c.GetBool(debugKey) && appErr.Err != nil {
			body["error"] = appErr.Err.Error()
		}
	} else {
		logger.Debug("request rejected",
			slog.String("route", route),
			slog.Int("status", status),
			slog.String("message", appErr.Message),
		)
	}
	c.AbortWithStatusJSON(status, body)
}

// respondValidationError reports binding failures as InvalidState with one
// line per offending field.
func respondValidationError(c *gin.Context, route string, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		details := make([]string, 0, len(validationErrors))
		for _, fieldError := range validationErrors {
			details = append(details, describeFieldError(fieldError))
		}
		respondError(c, route, apperr.InvalidState("validation failed").WithDetails(details))
		return
	}
	respondError(c, route, apperr.InvalidState("invalid request body"))
}

func describeFieldError(fe validator.FieldError) string {
	field := lowerCamel(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "objectid":
		return fmt.Sprintf("%s must be a valid id", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func lowerCamel(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}

// bindJSON decodes the body into dst, writing the error response on failure.
func bindJSON(c *gin.Context, route string, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondValidationError(c, route, err)
		return false
	}
	return true
}

// objectIDParam parses the named path parameter, writing a 400 when malformed.
func objectIDParam(c *gin.Context, route, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		respondError(c, route, apperr.InvalidState(fmt.Sprintf("invalid %s", name)))
		return primitive.NilObjectID, false
	}
	return id, true
}

// caller returns the identity AuthGuard stored. Routes without a guard get a 401.
func caller(c *gin.Context, route string) (models.Identity, bool) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		respondError(c, route, apperr.Unauthorized("unauthorized"))
	}
	return identity, ok
}
