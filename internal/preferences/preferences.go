// Package preferences holds the user session and display settings that the
// daemon shares between its components, persisted as a YAML file.
package preferences

import (
	"fmt"
	"strings"
)

// Supported display languages.
const (
	LanguageEnglish = "en"
	LanguageFrench  = "fr"
	LanguageSpanish = "es"
)

// Supported themes.
const (
	ThemeLight  = "light"
	ThemeDark   = "dark"
	ThemeSystem = "system"
)

// Preferences is the persisted settings document.
type Preferences struct {
	Language string `yaml:"language"`
	Theme    string `yaml:"theme"`
	HouseID  int64  `yaml:"house_id"`
	Auth     Auth   `yaml:"auth"`
}

// Auth holds the signed-in account. SealedToken is encrypted at rest.
type Auth struct {
	Email       string `yaml:"email,omitempty"`
	SealedToken string `yaml:"sealed_token,omitempty"`
}

// Defaults returns the settings used before anything was saved.
func Defaults() Preferences {
	return Preferences{
		Language: LanguageEnglish,
		Theme:    ThemeSystem,
	}
}

// SignedIn reports whether a token is stored.
func (p Preferences) SignedIn() bool {
	return p.Auth.SealedToken != ""
}

// FieldError reports an invalid setting.
type FieldError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	return fmt.Sprintf("preferences: %s %s", e.Field, e.Message)
}

// Validate checks language, theme and house id.
func (p Preferences) Validate() error {
	switch strings.ToLower(p.Language) {
	case LanguageEnglish, LanguageFrench, LanguageSpanish:
	default:
		return &FieldError{Field: "language", Message: "must be one of en, fr, es"}
	}
	switch strings.ToLower(p.Theme) {
	case ThemeLight, ThemeDark, ThemeSystem:
	default:
		return &FieldError{Field: "theme", Message: "must be one of light, dark, system"}
	}
	if p.HouseID < 0 {
		return &FieldError{Field: "house_id", Message: "must not be negative"}
	}
	return nil
}

func (p Preferences) normalized() Preferences {
	p.Language = strings.ToLower(strings.TrimSpace(p.Language))
	p.Theme = strings.ToLower(strings.TrimSpace(p.Theme))
	if p.Language == "" {
		p.Language = LanguageEnglish
	}
	if p.Theme == "" {
		p.Theme = ThemeSystem
	}
	return p
}
