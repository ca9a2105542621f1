package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/futig/doc-chat/internal/entity"
	playground "github.com/go-playground/validator/v10"
)

var structValidator = newStructValidator()

func newStructValidator() *playground.Validate {
	v := playground.New()
	// Report JSON field names so messages match the request body
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return toSnake(fld.Name)
		}
		return name
	})
	return v
}

// ValidateStruct checks `validate` tags and maps failures onto entity sentinels.
func ValidateStruct(s any) error {
	err := structValidator.Struct(s)
	if err == nil {
		return nil
	}

	var verrs playground.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("%w: %v", entity.ErrInvalidParameter, err)
	}

	fe := verrs[0]
	if fe.Tag() == "required" {
		return fmt.Errorf("%w: %s", entity.ErrMissingField, fe.Field())
	}
	return fmt.Errorf("%w: %s must satisfy %s=%s", entity.ErrInvalidParameter, fe.Field(), fe.Tag(), fe.Param())
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' && (s[i-1] < 'A' || s[i-1] > 'Z') {
			b.WriteByte('_')
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}
