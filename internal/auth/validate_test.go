package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sakif/newsdesk/internal/model"
)

func TestValidateSignup(t *testing.T) {
	v := NewValidator()
	valid := model.SignupData{
		Email:       "ann@example.com",
		Password:    "Password123",
		Name:        "Ann",
		AcceptTerms: true,
	}

	cases := []struct {
		name   string
		mutate func(*model.SignupData)
		want   map[string]string
	}{
		{"valid", func(*model.SignupData) {}, nil},
		{"missing email", func(d *model.SignupData) { d.Email = "" },
			map[string]string{"email": "Email is required"}},
		{"bad email", func(d *model.SignupData) { d.Email = "ann@example" },
			map[string]string{"email": "Please enter a valid email address"}},
		{"email with space", func(d *model.SignupData) { d.Email = "a nn@example.com" },
			map[string]string{"email": "Please enter a valid email address"}},
		{"empty password", func(d *model.SignupData) { d.Password = "" },
			map[string]string{"password": "Password must be at least 8 characters"}},
		{"short password", func(d *model.SignupData) { d.Password = "Pa1" },
			map[string]string{"password": "Password must be at least 8 characters"}},
		{"no uppercase", func(d *model.SignupData) { d.Password = "password123" },
			map[string]string{"password": "Password must contain at least one uppercase letter"}},
		{"no lowercase", func(d *model.SignupData) { d.Password = "PASSWORD123" },
			map[string]string{"password": "Password must contain at least one lowercase letter"}},
		{"no digit", func(d *model.SignupData) { d.Password = "PasswordXYZ" },
			map[string]string{"password": "Password must contain at least one number"}},
		{"missing name", func(d *model.SignupData) { d.Name = "" },
			map[string]string{"name": "Name is required"}},
		{"short name", func(d *model.SignupData) { d.Name = "A" },
			map[string]string{"name": "Name must be at least 2 characters"}},
		{"terms not accepted", func(d *model.SignupData) { d.AcceptTerms = false },
			map[string]string{"acceptTerms": "You must accept the terms and conditions"}},
		{"several fields", func(d *model.SignupData) { d.Email, d.Name = "", "" },
			map[string]string{"email": "Email is required", "name": "Name is required"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data := valid
			tc.mutate(&data)
			assert.Equal(t, tc.want, v.Struct(data))
		})
	}
}

func TestValidateLogin(t *testing.T) {
	v := NewValidator()

	assert.Nil(t, v.Struct(model.LoginCredentials{Email: "user@newsapp.com", Password: "Password123"}))
	assert.Equal(t,
		map[string]string{"email": "Email is required", "password": "Password must be at least 8 characters"},
		v.Struct(model.LoginCredentials{}),
	)
}

func TestValidateArticleInput(t *testing.T) {
	v := NewValidator()
	bad := "not a url"

	got := v.Struct(model.ArticleInput{
		Title:       strings.Repeat("t", 201),
		Intro:       "",
		Description: "<p>x</p>",
		Category:    "weather",
		ImageURL:    &bad,
		Tags:        []string{"ok", ""},
	})

	assert.Equal(t, map[string]string{
		"title":    "title must be at most 200 characters",
		"intro":    "Article introduction is required",
		"category": "Please select a valid category",
		"imageUrl": "imageUrl must be a valid URL",
		"tags[1]":  "tags[1] is required",
	}, got)

	assert.Nil(t, v.Struct(model.ArticleInput{
		Title:       "Hello",
		Intro:       "World",
		Description: "<p>body</p>",
		Category:    model.CategoryScience,
	}))
}

func TestPasswordPolicyViolation(t *testing.T) {
	assert.Empty(t, passwordPolicyViolation("Admin123"))
	assert.Equal(t, "Password must contain at least one uppercase letter", passwordPolicyViolation(""))
}

// =========================================================================
// PREFERENCES AND ROLES
// =========================================================================

func ptr[T any](v T) *T { return &v }

func TestValidatePreferencesPatch(t *testing.T) {
	v := NewValidator()

	cases := []struct {
		name  string
		patch model.PreferencesPatch
		want  map[string]string
	}{
		{"empty patch", model.PreferencesPatch{}, nil},
		{"dark theme", model.PreferencesPatch{Theme: ptr(model.ThemeDark)}, nil},
		{"unknown theme", model.PreferencesPatch{Theme: ptr("sepia")},
			map[string]string{"theme": "Theme must be auto, light or dark"}},
		{"empty theme", model.PreferencesPatch{Theme: ptr("")},
			map[string]string{"theme": "Theme must be auto, light or dark"}},
		{"empty language", model.PreferencesPatch{Language: ptr("")},
			map[string]string{"language": "Language is required"}},
		{"language", model.PreferencesPatch{Language: ptr("de")}, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, v.Struct(tc.patch))
		})
	}
}

func TestValidateNewsPreferencesPatch(t *testing.T) {
	v := NewValidator()

	cases := []struct {
		name  string
		patch model.NewsPreferencesPatch
		want  map[string]string
	}{
		{"empty patch", model.NewsPreferencesPatch{}, nil},
		{"cleared categories", model.NewsPreferencesPatch{FavoriteCategories: []model.NewsCategory{}}, nil},
		{"known category", model.NewsPreferencesPatch{FavoriteCategories: []model.NewsCategory{model.CategoryScience}}, nil},
		{"unknown category", model.NewsPreferencesPatch{FavoriteCategories: []model.NewsCategory{model.CategoryScience, "gossip"}},
			map[string]string{"favoriteCategories[1]": "Unknown news category"}},
		{"unknown sort", model.NewsPreferencesPatch{DefaultSortBy: ptr(model.NewsSortBy("random"))},
			map[string]string{"defaultSortBy": "Sort order must be publishedAt, popularity or relevancy"}},
		{"zero per page", model.NewsPreferencesPatch{ArticlesPerPage: ptr(0)},
			map[string]string{"articlesPerPage": "Articles per page must be between 1 and 100"}},
		{"too many per page", model.NewsPreferencesPatch{ArticlesPerPage: ptr(101)},
			map[string]string{"articlesPerPage": "Articles per page must be between 1 and 100"}},
		{"full page", model.NewsPreferencesPatch{ArticlesPerPage: ptr(100)}, nil},
		{"zero refresh", model.NewsPreferencesPatch{AutoRefreshInterval: ptr(0)},
			map[string]string{"autoRefreshInterval": "Refresh interval must be at least 1 minute"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, v.Struct(tc.patch))
		})
	}
}

func TestValidateRoleUpdate(t *testing.T) {
	v := NewValidator()

	for _, role := range []model.Role{model.RoleAdmin, model.RoleUser} {
		assert.Nil(t, v.Struct(model.RoleUpdate{Role: role}), role)
	}
	for _, role := range []model.Role{"", "editor", "superuser", "Admin"} {
		assert.Equal(t, map[string]string{"role": "Role must be admin or user"},
			v.Struct(model.RoleUpdate{Role: role}), role)
	}
}
