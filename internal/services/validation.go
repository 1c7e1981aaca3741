package services

import (
	"errors"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/soaringjerry/pregate/internal/models"
)

var validate *validator.Validate

var validationMessages = map[string]string{
	"required":     "is required",
	"min":          "must be at least %s",
	"max":          "must be at most %s",
	"gte":          "must be at least %s",
	"lte":          "must be at most %s",
	"uuid":         "must be a UUID",
	"email":        "must be a valid email",
	"oneof":        "must be one of %s",
	"unique":       "must not contain duplicates",
	"http_url":     "must be an absolute http(s) URL",
	"control_kind": "must be one of radio, checkbox, true_false, text",
}

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = validate.RegisterValidation("http_url", validateHTTPURL)
	_ = validate.RegisterValidation("control_kind", validateControlKind)
}

func validateHTTPURL(fl validator.FieldLevel) bool {
	u, err := url.Parse(fl.Field().String())
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

func validateControlKind(fl validator.FieldLevel) bool {
	return models.ControlKind(fl.Field().String()).Valid()
}

// validateStruct runs the struct tags of v and converts failures into an invalid ServiceError
// whose message is the first problem and whose details list all of them.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return NewInvalidError("invalid request")
	}
	details := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, formatFieldError(fe))
	}
	return NewInvalidError(details[0], details...)
}

func formatFieldError(fe validator.FieldError) string {
	msg, ok := validationMessages[fe.Tag()]
	if !ok {
		msg = "is invalid"
	}
	if strings.Contains(msg, "%s") {
		param := fe.Param()
		if fe.Tag() == "oneof" {
			param = strings.Join(strings.Fields(param), ", ")
		}
		msg = strings.Replace(msg, "%s", param, 1)
	}
	return fe.Field() + " " + msg
}
