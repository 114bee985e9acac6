// Package validation provides input validation for configuration and
// pipeline records.
//
// It supports both struct tag validation (using the validator library)
// and programmatic validation with error collection.
//
// # Struct Tag Validation
//
//	type ServerSettings struct {
//	    Host string `validate:"required"`
//	    Port int    `validate:"min=1,max=65535"`
//	}
//	err := validation.Validate(settings)
//
// # Programmatic Validation
//
//	v := validation.New()
//	v.Required("name", record.Name)
//	err := v.Validate()
package validation
