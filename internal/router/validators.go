package router

import (
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// registerValidators installs the custom binding tags used by request
// structs: hhmm for "HH:MM" wall-clock times, iana_tz for timezone names.
func registerValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if len(s) != 5 || s[2] != ':' {
			return false
		}
		if s == "24:00" {
			return true
		}
		_, err := time.Parse("15:04", s)
		return err == nil
	})
	_ = v.RegisterValidation("iana_tz", func(fl validator.FieldLevel) bool {
		name := fl.Field().String()
		if name == "" || name == "Local" {
			return false
		}
		_, err := time.LoadLocation(name)
		return err == nil
	})
}
