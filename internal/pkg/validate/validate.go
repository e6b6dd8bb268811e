package validate

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// verifyCodeRe accepts the six hex characters of a short code in either case,
// with surrounding spaces that the verification service trims.
var verifyCodeRe = regexp.MustCompile(`^\s*[0-9A-Fa-f]{6}\s*$`)

// v is the package-level singleton validator. Custom tags are registered in init.
var v = validator.New()

func init() {
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("verifycode", func(fl validator.FieldLevel) bool {
		return verifyCodeRe.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
}

// Struct validates the given struct using its validate tags.
// Field names in the error use the JSON names clients send.
func Struct(s interface{}) error {
	if err := v.Struct(s); err != nil {
		ve, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		var msgs []string
		for _, fe := range ve {
			msgs = append(msgs, fmt.Sprintf("field '%s' failed '%s'", fe.Field(), fe.Tag()))
		}
		return fmt.Errorf("%s", strings.Join(msgs, "; "))
	}
	return nil
}
