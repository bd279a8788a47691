package validation

import (
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// shared is safe for concurrent use; validator caches struct metadata.
var shared = validator.New(validator.WithRequiredStructEnabled())

type defaultValidator struct{ v *validator.Validate }

func (d *defaultValidator) Validate(i interface{}) error {
	return d.v.Struct(i)
}

// New returns an echo.Validator implementation.
func New() echo.Validator {
	return &defaultValidator{v: shared}
}

// Struct validates any tagged struct outside of a request context.
func Struct(i interface{}) error {
	return shared.Struct(i)
}
