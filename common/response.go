package common

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Envelope is the body of every JSON response.
type Envelope struct {
	Status  string `json:"status"`
	Data    any    `json:"data"`
	Message string `json:"message"`
}

func Success(c *gin.Context, status int, data any, message string) {
	if status == http.StatusNoContent {
		c.Status(status)
		return
	}
	c.JSON(status, Envelope{Status: StatusSuccess, Data: data, Message: message})
}

func Failure(c *gin.Context, status int, message string, data any) {
	c.JSON(status, Envelope{Status: StatusError, Data: data, Message: message})
}

// Fail writes err as an error envelope and aborts the handler chain.
func Fail(c *gin.Context, err error) {
	appErr := AsError(err)
	status := appErr.Status()
	slog.Debug("request rejected",
		"event", "request_rejected",
		"module", "common",
		"request_id", RequestID(c),
		"status", status,
		"error", appErr.Error(),
	)
	Failure(c, status, appErr.Error(), appErr.Data)
	c.Abort()
}

// BindJSON binds the request body and turns binding failures into a
// validation error.
func BindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return BindingError(err)
	}
	return nil
}

func BindingError(err error) *Error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &Error{Kind: KindValidation, Message: "The request body is invalid.", Err: err}
	}

	fields := make(map[string][]string, len(verrs))
	var first string
	for _, fe := range verrs {
		name := snakeCase(fe.Field())
		msg := fieldMessage(name, fe)
		if first == "" {
			first = msg
		}
		fields[name] = append(fields[name], msg)
	}
	return &Error{
		Kind:    KindValidation,
		Message: first,
		Data:    gin.H{"errors": fields},
		Err:     err,
	}
}

func fieldMessage(field string, fe validator.FieldError) string {
	label := strings.ReplaceAll(field, "_", " ")
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", label)
	case "email":
		return fmt.Sprintf("The %s field must be a valid email address.", label)
	case "max":
		return fmt.Sprintf("The %s field must not be greater than %s characters.", label, fe.Param())
	case "min":
		if fe.Param() == "1" {
			return fmt.Sprintf("The %s field is required.", label)
		}
		return fmt.Sprintf("The %s field must be at least %s characters.", label, fe.Param())
	default:
		return fmt.Sprintf("The %s field is invalid.", label)
	}
}

func snakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
