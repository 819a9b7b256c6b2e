// internal/app/system/validate/validate.go

// Package validate checks request structs with go-playground/validator before
// anything touches the store. Failures come back as MalformedInput outcomes
// naming the offending field.
//
// Custom tags:
//
//	latlon   "lat, lon" text with in-range coordinates
//	iso8601  a timestamp geo.ParseTimestamp accepts
//	codes    a non-empty list of non-blank community codes
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/dalemusser/fieldhub/internal/app/system/geo"
	"github.com/dalemusser/fieldhub/internal/app/system/outcome"
	"github.com/go-playground/validator/v10"
)

var (
	v    *validator.Validate
	once sync.Once
)

func instance() *validator.Validate {
	once.Do(func() {
		v = validator.New(validator.WithRequiredStructEnabled())

		// Report json names, which is what clients sent.
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})

		_ = v.RegisterValidation("latlon", func(fl validator.FieldLevel) bool {
			_, err := geo.ParseLatLon(fl.Field().String())
			return err == nil
		})
		_ = v.RegisterValidation("iso8601", func(fl validator.FieldLevel) bool {
			_, _, err := geo.ParseTimestamp(fl.Field().String())
			return err == nil
		})
		_ = v.RegisterValidation("codes", func(fl validator.FieldLevel) bool {
			f := fl.Field()
			if f.Kind() != reflect.Slice || f.Len() == 0 {
				return false
			}
			for i := 0; i < f.Len(); i++ {
				if strings.TrimSpace(f.Index(i).String()) == "" {
					return false
				}
			}
			return true
		})
	})
	return v
}

// Struct validates s and returns a Malformed outcome for the first failures.
func Struct(op string, s any) error {
	err := instance().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return outcome.Malformed(op, "invalid request: %v", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, message(fe))
	}
	return outcome.Malformed(op, "%s", strings.Join(msgs, "; "))
}

func message(fe validator.FieldError) string {
	f := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", f)
	case "latlon":
		return fmt.Sprintf("%s must be \"lat, lon\"", f)
	case "iso8601":
		return fmt.Sprintf("%s must be an ISO-8601 timestamp", f)
	case "codes":
		return fmt.Sprintf("%s must list at least one community code", f)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", f, fe.Param())
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", f, fe.Param())
	case "email":
		return fmt.Sprintf("%s must be an email address", f)
	case "uri", "url":
		return fmt.Sprintf("%s must be a URL", f)
	case "alphanum":
		return fmt.Sprintf("%s must be letters and digits", f)
	}
	return fmt.Sprintf("%s failed %s", f, fe.Tag())
}
