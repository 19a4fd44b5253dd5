package auth

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/newsdesk/internal/model"
)

// emailPattern is deliberately loose: something@something.something.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Validator checks request payloads against their `validate` struct tags
// and turns failures into user-facing messages keyed by JSON field name.
type Validator struct {
	validate *validator.Validate
}

// NewValidator registers the custom tags used by the model package:
//
//	email_simple     the loose email pattern above
//	password_policy  at least one upper-case letter, lower-case letter and digit
//	news_category    one of model.Categories
//	accepted         a bool that must be true
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Registration only fails for an empty tag or nil func.
	_ = v.RegisterValidation("email_simple", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("password_policy", func(fl validator.FieldLevel) bool {
		return passwordPolicyViolation(fl.Field().String()) == ""
	})
	_ = v.RegisterValidation("news_category", func(fl validator.FieldLevel) bool {
		return model.NewsCategory(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("accepted", func(fl validator.FieldLevel) bool {
		return fl.Field().Kind() == reflect.Bool && fl.Field().Bool()
	})

	return &Validator{validate: v}
}

// Struct validates s and returns one message per failing field, or nil
// when s is valid. Only the first failing rule of a field is reported.
func (v *Validator) Struct(s any) map[string]string {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		// InvalidValidationError: s was not a struct.
		return map[string]string{"": err.Error()}
	}

	messages := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := fieldPath(fe)
		if _, seen := messages[field]; seen {
			continue
		}
		messages[field] = messageFor(fe)
	}
	return messages
}

// fieldPath drops the struct name prefix: "SignupData.email" → "email",
// "ArticleInput.tags[2]" → "tags[2]".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

// fixedMessages are the wordings the UI shows for the auth forms.
var fixedMessages = map[string]string{
	"email.required":         "Email is required",
	"email.email_simple":     "Please enter a valid email address",
	"password.required":      "Password must be at least 8 characters",
	"password.min":           "Password must be at least 8 characters",
	"name.required":          "Name is required",
	"name.min":               "Name must be at least 2 characters",
	"acceptTerms.accepted":   "You must accept the terms and conditions",
	"title.required":         "Article title is required",
	"intro.required":         "Article introduction is required",
	"description.required":   "Article content is required",
	"category.required":      "Category is required",
	"category.news_category": "Please select a valid category",

	"theme.oneof":                      "Theme must be auto, light or dark",
	"language.min":                     "Language is required",
	"favoriteCategories.news_category": "Unknown news category",
	"defaultSortBy.oneof":              "Sort order must be publishedAt, popularity or relevancy",
	"articlesPerPage.min":              "Articles per page must be between 1 and 100",
	"articlesPerPage.max":              "Articles per page must be between 1 and 100",
	"autoRefreshInterval.min":          "Refresh interval must be at least 1 minute",
	"role.required":                    "Role must be admin or user",
	"role.oneof":                       "Role must be admin or user",
}

func messageFor(fe validator.FieldError) string {
	field := fe.Field()
	if fe.Tag() == "password_policy" {
		return passwordPolicyViolation(fmt.Sprint(fe.Value()))
	}
	// Slice elements share their list's wording: "favoriteCategories[1]".
	base, _, _ := strings.Cut(field, "[")
	if msg, ok := fixedMessages[base+"."+fe.Tag()]; ok {
		return msg
	}

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must have at most %s entries", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}

// passwordPolicyViolation returns the first unmet character-class rule, or
// "" when the password satisfies all of them.
func passwordPolicyViolation(password string) string {
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	switch {
	case !upper:
		return "Password must contain at least one uppercase letter"
	case !lower:
		return "Password must contain at least one lowercase letter"
	case !digit:
		return "Password must contain at least one number"
	}
	return ""
}
