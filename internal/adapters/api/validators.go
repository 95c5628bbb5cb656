package api

import (
	"net/url"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerOnce sync.Once

// registerValidators installs custom binding rules on gin's validator engine.
func registerValidators() {
	registerOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			_ = v.RegisterValidation("httpurl", validHTTPURL)
		}
	})
}

// validHTTPURL accepts only absolute http(s) URLs. The built-in "url" rule
// also passes schemes like javascript: and data:, which must not end up in
// stored image lists.
func validHTTPURL(fl validator.FieldLevel) bool {
	u, err := url.Parse(fl.Field().String())
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
