package main

import (
	"reflect"
	"strings"
	"sync"

	"bootcamps/models"
	"bootcamps/pkg/session"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var validatorsOnce sync.Once

// registerValidators adds the custom binding rules and makes validation
// messages use JSON field names.
func registerValidators() {
	validatorsOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
		_ = v.RegisterValidation("safepassword", func(fl validator.FieldLevel) bool {
			return session.CheckPasswordPolicy(fl.Field().String()) == nil
		})
		_ = v.RegisterValidation("career", func(fl validator.FieldLevel) bool {
			return isCareer(fl.Field().String())
		})
	})
}

func isCareer(s string) bool {
	for _, c := range models.Careers {
		if c == s {
			return true
		}
	}
	return false
}

// validateVar checks a single value against a tag outside of struct binding.
func validateVar(v any, tag string) bool {
	eng, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return true
	}
	return eng.Var(v, tag) == nil
}
