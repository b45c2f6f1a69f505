package allocation

import (
	"github.com/go-playground/validator/v10"
	"github.com/omnisync/backend/internal/domain/allocation"
)

// RegisterValidations adds the workflow tags to v. The HTTP layer registers
// them on gin's engine as well.
func RegisterValidations(v *validator.Validate) error {
	return v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		_, _, ok := allocation.ParseClock(fl.Field().String())
		return ok
	})
}

func newValidator() *validator.Validate {
	v := validator.New()
	if err := RegisterValidations(v); err != nil {
		panic(err)
	}
	return v
}
