package config

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/kilupskalvis/zcurate/internal/models"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("toml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks every key and reports all offending keys at once
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return models.Configf("invalid configuration: %v", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return models.Configf("invalid configuration:\n  %s", strings.Join(msgs, "\n  "))
}

func describe(fe validator.FieldError) string {
	// Namespace is "Config.review.zmax"; drop the root type name
	key := fe.Namespace()
	if _, rest, ok := strings.Cut(key, "."); ok {
		key = rest
	}
	switch fe.Tag() {
	case "required":
		return key + ": is required"
	case "required_if":
		return key + ": is required when " + fe.Param()
	case "oneof":
		return key + ": must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "gtefield":
		return key + ": must not be less than " + fe.Param()
	case "gt":
		return key + ": must be greater than " + fe.Param()
	case "gte", "min":
		return key + ": must be at least " + fe.Param()
	case "lte", "max":
		return key + ": must be at most " + fe.Param()
	default:
		return key + ": failed " + fe.Tag()
	}
}
