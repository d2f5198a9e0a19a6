package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// Validate checks config against its `validate` struct tags. Each failed constraint is reported
// as a separate error naming the offending field.
func Validate(config interface{}) error {
	err := validator.New().Struct(config)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return errors.WithStack(err)
	}
	var result *multierror.Error
	for _, fieldErr := range validationErrors {
		result = multierror.Append(result, describe(fieldErr))
	}
	return result.ErrorOrNil()
}

func describe(err validator.FieldError) error {
	fieldName := stripPrefix(err.Namespace())
	switch err.Tag() {
	case "required":
		return errors.Errorf("ConfigError: Field %s is required but was not found", fieldName)
	default:
		constraint := err.Tag()
		if err.Param() != "" {
			constraint = constraint + "=" + err.Param()
		}
		return errors.Errorf("ConfigError: Field %s has invalid value %s: %s", fieldName, fmt.Sprint(err.Value()), constraint)
	}
}

func stripPrefix(s string) string {
	if idx := strings.Index(s, "."); idx != -1 {
		return s[idx+1:]
	}
	return s
}
