package service

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/spec-kit/support-desk/internal/domain"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

var simpleEmailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// inputValidator wraps go-playground validator with the desk's custom rules.
type inputValidator struct {
	validate *validator.Validate
}

func newInputValidator() *inputValidator {
	v := validator.New()
	_ = v.RegisterValidation("simple_email", func(fl validator.FieldLevel) bool {
		return simpleEmailPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("ticket_category", func(fl validator.FieldLevel) bool {
		return domain.TicketCategory(fl.Field().String()).Valid()
	})
	return &inputValidator{validate: v}
}

// check validates input and reports, in order of precedence, missing
// required fields, a malformed email and an unknown category.
func (v *inputValidator) check(input any, requiredMessage string) error {
	err := v.validate.Struct(input)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.NewInternalError(err)
	}

	missing := []string{}
	for _, fe := range fieldErrs {
		if fe.Tag() == "required" {
			missing = append(missing, strings.ToLower(fe.Field()))
		}
	}
	if len(missing) > 0 {
		return apperrors.NewValidationError(requiredMessage, map[string]any{"fields": missing})
	}

	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "simple_email":
			return apperrors.NewValidationError("invalid email address", map[string]any{"field": "email"})
		case "ticket_category":
			return apperrors.NewValidationError(
				fmt.Sprintf("category must be one of: %s", joinValues(domain.TicketCategories)),
				map[string]any{"field": "category"},
			)
		}
	}
	return apperrors.NewValidationError("invalid payload", nil)
}

func joinValues[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}

// nextID allocates max(existing ids)+1, or 1 for an empty store.
func nextID[T any](records []T, id func(*T) int64) int64 {
	var highest int64
	for i := range records {
		if v := id(&records[i]); v > highest {
			highest = v
		}
	}
	return highest + 1
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

// stringPreview cuts body to at most max bytes without splitting a UTF-8
// sequence.
func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:runeBoundary(body, max)]
	}
	return body[:runeBoundary(body, max-3)] + "..."
}

func runeBoundary(s string, n int) int {
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return n
}
