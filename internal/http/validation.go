package httpserver

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Clark-Hu/kmdb-api/internal/domain"
)

// birthDatePattern accepts yyyy-MM-dd with a year between 1900 and 2099.
var birthDatePattern = regexp.MustCompile(`^(19|20)\d{2}-(0[1-9]|1[012])-(0[1-9]|[12][0-9]|3[01])$`)

const birthDateMessage = "Please enter a valid date in yyyy-MM-dd format"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("birthdate", func(fl validator.FieldLevel) bool {
		raw := strings.TrimSpace(fl.Field().String())
		return raw == "" || birthDatePattern.MatchString(raw)
	})
	return v
}

// fieldMessages maps "<json field>.<tag>" to the message shown to clients.
var fieldMessages = map[string]string{
	"title.notblank":      "Title cannot be empty",
	"name.notblank":       "Name cannot be empty",
	"releaseYear.min":     fmt.Sprintf("Movie release year must be between %d and %d", domain.MinReleaseYear, domain.MaxReleaseYear),
	"releaseYear.max":     fmt.Sprintf("Movie release year must be between %d and %d", domain.MinReleaseYear, domain.MaxReleaseYear),
	"duration.min":        fmt.Sprintf("Movie duration must be between %d and %d minutes", domain.MinDuration, domain.MaxDuration),
	"duration.max":        fmt.Sprintf("Movie duration must be between %d and %d minutes", domain.MinDuration, domain.MaxDuration),
	"birthDate.birthdate": birthDateMessage,
}

// validateRequest runs the struct tags of req and returns a validation
// domain error with one message per failing field, in declaration order.
func validateRequest(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	messages := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if msg, ok := fieldMessages[fe.Field()+"."+fe.Tag()]; ok {
			messages = append(messages, msg)
			continue
		}
		messages = append(messages, fmt.Sprintf("Field '%s' failed the '%s' rule", fe.Field(), fe.Tag()))
	}
	return domain.Validation(messages...)
}

// parseBirthDate converts a validated birth date; impossible calendar dates
// such as 2001-02-30 pass the pattern and are rejected here. A blank value
// is treated as absent.
func parseBirthDate(raw *string) (*time.Time, error) {
	raw = blankToNil(raw)
	if raw == nil {
		return nil, nil
	}
	t, err := time.Parse(domain.DateLayout, strings.TrimSpace(*raw))
	if err != nil {
		return nil, domain.Validation(birthDateMessage)
	}
	return &t, nil
}

// blankToNil drops empty patch values so they leave stored fields alone.
func blankToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}
