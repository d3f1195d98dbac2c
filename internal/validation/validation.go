// Package validation checks request input and reports every violation at once.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type Errors []FieldError

func (e Errors) Error() string {
	parts := make([]string, 0, len(e))
	for _, fe := range e {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return strings.Join(parts, "; ")
}

func (e *Errors) Add(field, message string) {
	*e = append(*e, FieldError{Field: field, Message: message})
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return jsonName(f)
	})

	// Amounts are compared as numbers so gte/lte work on decimals.
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		d, ok := field.Interface().(decimal.Decimal)
		if !ok {
			return nil
		}
		return d.InexactFloat64()
	}, decimal.Decimal{})

	// An unparsable Int reads as missing so its rules report it.
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		i, ok := field.Interface().(Int)
		if !ok || !i.valid {
			return nil
		}
		return i.value
	}, Int{})

	// imageref accepts an absolute http(s) URL or a local upload path.
	_ = v.RegisterValidation("imageref", func(fl validator.FieldLevel) bool {
		return IsImageRef(fl.Field().String())
	})

	return v
}

func IsImageRef(s string) bool {
	if strings.HasPrefix(s, "/uploads/") && len(s) > len("/uploads/") {
		return true
	}
	u, err := url.ParseRequestURI(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Struct validates v and returns one entry per failing field. A field's
// `msg` tag, when present, replaces the generated message.
func Struct(v any) Errors {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return Errors{{Field: "body", Message: err.Error()}}
	}

	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	out := make(Errors, 0, len(verrs))
	seen := make(map[string]bool, len(verrs))
	for _, fe := range verrs {
		if seen[fe.Field()] {
			continue
		}
		seen[fe.Field()] = true

		msg := describe(fe)
		if sf, ok := t.FieldByName(fe.StructField()); ok {
			if custom := sf.Tag.Get("msg"); custom != "" {
				msg = custom
			}
		}
		out = append(out, FieldError{Field: fe.Field(), Message: msg})
	}
	return out
}

// Body validates dst after it was decoded with decodeErr. A type mismatch
// leaves the other fields decoded, so they are still checked and every
// violation is reported together.
func Body(dst any, decodeErr error) Errors {
	if decodeErr == nil {
		return Struct(dst)
	}

	errs := Decode(dst, decodeErr)
	var typeErr *json.UnmarshalTypeError
	if !errors.As(decodeErr, &typeErr) || typeErr.Field == "" {
		return errs
	}

	failed := errs[0].Field
	for _, fe := range Struct(dst) {
		if fe.Field != failed {
			errs = append(errs, fe)
		}
	}
	return errs
}

// Decode reports a JSON body decoding failure against dst. Type mismatches
// become an error on the offending field.
func Decode(dst any, err error) Errors {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		field := typeErr.Field
		msg := fmt.Sprintf("%s has an invalid type", field)
		if custom := messageFor(dst, field); custom != "" {
			msg = custom
		}
		return Errors{{Field: field, Message: msg}}
	}
	return Errors{{Field: "body", Message: "Request body must be valid JSON"}}
}

func messageFor(dst any, field string) string {
	t := reflect.TypeOf(dst)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return ""
	}
	for i := 0; i < t.NumField(); i++ {
		if f := t.Field(i); jsonName(f) == field {
			return f.Tag.Get("msg")
		}
	}
	return ""
}

func jsonName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	}
	return name
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email"
	case "url":
		return fe.Field() + " must be a valid URL"
	case "oneof":
		return fe.Field() + " must be one of: " + fe.Param()
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	default:
		return fe.Field() + " is invalid"
	}
}
