package validators

import (
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/metricboard/engine/internal/models"
)

var (
	once     sync.Once
	instance *validator.Validate
)

// New returns the shared request validator. It knows the isodate tag (YYYY-MM-DD).
func New() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
			_, err := models.ParseDate(fl.Field().String())
			return err == nil
		})
		instance = v
	})
	return instance
}
