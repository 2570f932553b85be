package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"regexp"
	"strings"

	pkghttp "github.com/BradenHooton/labsy/pkg/http"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	saudiPhonePattern = regexp.MustCompile(`^(\+9665\d{8}|05\d{8})$`)
	personNamePattern = regexp.MustCompile(`^[\p{Latin}\p{Arabic} .\-]{2,100}$`)
)

// socialHosts lists the hosts accepted for each social platform.
var socialHosts = map[string][]string{
	"instagram": {"instagram.com"},
	"facebook":  {"facebook.com", "fb.com"},
	"twitter":   {"twitter.com", "x.com"},
	"tiktok":    {"tiktok.com"},
	"youtube":   {"youtube.com", "youtu.be"},
}

// Global validator instance (reused across all handlers)
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// Report JSON names so clients can match errors to their payload.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		d, ok := field.Interface().(decimal.Decimal)
		if !ok {
			return nil
		}
		f, _ := d.Float64()
		return f
	}, decimal.Decimal{})

	mustRegister(v, "sa_phone", func(fl validator.FieldLevel) bool {
		return saudiPhonePattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "person_name", func(fl validator.FieldLevel) bool {
		return personNamePattern.MatchString(strings.TrimSpace(fl.Field().String()))
	})
	mustRegister(v, "social", func(fl validator.FieldLevel) bool {
		return isSocialURL(fl.Field().String(), fl.Param())
	})
	mustRegister(v, "decimal_places", func(fl validator.FieldLevel) bool {
		d, ok := fl.Field().Interface().(decimal.Decimal)
		if !ok {
			// Custom type funcs already turned the value into a float64.
			f, isFloat := fl.Field().Interface().(float64)
			if !isFloat {
				return false
			}
			d = decimal.NewFromFloat(f)
		}
		places := int32(2)
		if fl.Param() != "" {
			fmt.Sscanf(fl.Param(), "%d", &places)
		}
		return d.Equal(d.Round(places))
	})

	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("failed to register validation %s: %v", tag, err))
	}
}

func isSocialURL(raw, platform string) bool {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	for _, allowed := range socialHosts[platform] {
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return true
		}
	}
	return false
}

// ValidateRequest validates a request struct and returns one entry per rejected field.
func ValidateRequest(req interface{}) []pkghttp.FieldError {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return []pkghttp.FieldError{{Field: "", Rule: "invalid", Message: err.Error()}}
	}

	fields := make([]pkghttp.FieldError, 0, len(ve))
	for _, fe := range ve {
		fields = append(fields, pkghttp.FieldError{
			Field:   fieldPath(fe),
			Rule:    fe.Tag(),
			Message: fieldPath(fe) + " " + formatValidationError(fe),
		})
	}
	return fields
}

// fieldPath drops the struct name from the namespace: "CreateFactoryRequest.location.city" -> "location.city".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

// formatValidationError converts a validator FieldError to a user-friendly message
func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s item(s)", fe.Param())
		}
		return fmt.Sprintf("must have a minimum of %s characters", fe.Param())
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at most %s item(s)", fe.Param())
		}
		return fmt.Sprintf("must have a maximum of %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "url":
		return "must be a valid URL"
	case "uuid":
		return "must be a valid UUID"
	case "sa_phone":
		return "must be a Saudi mobile number (+9665XXXXXXXX or 05XXXXXXXX)"
	case "person_name":
		return "must be 2-100 letters, spaces, dots or hyphens"
	case "social":
		return fmt.Sprintf("must be a valid %s URL", fe.Param())
	case "decimal_places":
		return "must have at most 2 decimal places"
	case "datetime":
		return fmt.Sprintf("must be a date in the format %s", fe.Param())
	default:
		return fmt.Sprintf("failed validation: %s", fe.Tag())
	}
}

// decodeRequest decodes the JSON body into dst and validates it, writing the error
// response itself on failure. Strict decoding rejects unknown fields.
func decodeRequest(w http.ResponseWriter, r *http.Request, dst interface{}, strict bool) bool {
	dec := json.NewDecoder(r.Body)
	if strict {
		dec.DisallowUnknownFields()
	}

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			pkghttp.WritePayloadTooLarge(w, "Request body is too large")
		case errors.Is(err, io.EOF):
			pkghttp.WriteBadRequest(w, "Request body is required")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			field := strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`)
			pkghttp.WriteValidationError(w, []pkghttp.FieldError{{
				Field:   field,
				Rule:    "unknown",
				Message: fmt.Sprintf("%s is not allowed", field),
			}})
		default:
			pkghttp.WriteBadRequest(w, "Invalid request body")
		}
		return false
	}

	if fields := ValidateRequest(dst); len(fields) > 0 {
		pkghttp.WriteValidationError(w, fields)
		return false
	}
	return true
}
