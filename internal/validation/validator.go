// Package validation wraps a shared go-playground validator instance with
// the custom tags used by the feed and request types:
//
//   - eventdate: a "2006-01-02T15:04:05-0700" event start time
//   - bbox:      a "north,east,south,west" bounding box in degrees
//   - coord:     a decimal degree string
package validation

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/iliyamo/conference-companion/internal/geo"
	"github.com/iliyamo/conference-companion/internal/utils"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// FieldError is a single failed rule.
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// Error collects every failed rule of one Struct call.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}
	return strings.Join(msgs, "; ")
}

// Get returns the singleton validator.
func Get() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("eventdate", func(fl validator.FieldLevel) bool {
			_, _, err := utils.ParseEventDate(fl.Field().String())
			return err == nil
		})
		_ = validate.RegisterValidation("bbox", func(fl validator.FieldLevel) bool {
			_, err := geo.ParseBoundingBox(fl.Field().String())
			return err == nil
		})
		_ = validate.RegisterValidation("coord", func(fl validator.FieldLevel) bool {
			_, err := geo.ParseE6(fl.Field().String())
			return err == nil
		})
	})
	return validate
}

// Struct validates s.  It returns nil or an *Error.
func Struct(s any) error {
	err := Get().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &Error{Fields: []FieldError{{Field: "unknown", Tag: "unknown", Message: err.Error()}}}
	}
	out := &Error{Fields: make([]FieldError, len(verrs))}
	for i, fe := range verrs {
		out.Fields[i] = FieldError{Field: fe.Namespace(), Tag: fe.Tag(), Message: message(fe)}
	}
	return out
}

var messages = map[string]string{
	"required":  "%s is required",
	"email":     "%s must be a valid email address",
	"url":       "%s must be a valid URL",
	"eventdate": "%s must look like 2012-09-18T09:30:00+0200",
	"bbox":      "%s must be north,east,south,west in degrees",
	"coord":     "%s must be a decimal degree value",
	"dive":      "%s is invalid",
}

func message(fe validator.FieldError) string {
	if tmpl, ok := messages[fe.Tag()]; ok {
		return fmt.Sprintf(tmpl, fe.Namespace())
	}
	switch fe.Tag() {
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Namespace(), fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", fe.Namespace(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Namespace(), fe.Param())
	}
	return fmt.Sprintf("%s failed %s validation", fe.Namespace(), fe.Tag())
}
