package config

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Defaults for a newly configured entry.
const (
	DefaultName           = "OpenAI Assistant"
	DefaultProvider       = "openai"
	DefaultModel          = "gpt-4"
	DefaultMaxTokens      = 2000
	DefaultTemperature    = 0.7
	DefaultRequestTimeout = "60s"
	DefaultHistoryLimit   = 100
	DefaultScanInterval   = "5m"

	MinMaxTokens   = 100
	MaxMaxTokens   = 4000
	MinTemperature = 0.0
	MaxTemperature = 2.0

	// UniqueIDLength is the number of API key characters used to detect
	// duplicate installations.
	UniqueIDLength = 8
)

// Models lists the model identifiers offered for the openai provider.
var Models = []string{"gpt-4", "gpt-4-turbo-preview", "gpt-3.5-turbo", "gpt-3.5-turbo-16k"}

// Entry errors.
var (
	ErrAlreadyConfigured = errors.New("already_configured")
	ErrEntryNotFound     = errors.New("entry not found")
	ErrNoEntries         = errors.New("no entries configured: run `hassist setup` first")
)

// EntryConfig is one installed assistant. It is immutable once set up.
type EntryConfig struct {
	ID             string  `toml:"id" validate:"required"`
	UniqueID       string  `toml:"unique_id"`
	Name           string  `toml:"name" validate:"required"`
	APIKey         string  `toml:"api_key" validate:"required_unless=Provider ollama"`
	Provider       string  `toml:"provider" validate:"omitempty,oneof=openai ollama"`
	Model          string  `toml:"model" validate:"required"`
	MaxTokens      int     `toml:"max_tokens" validate:"gte=100,lte=4000"`
	Temperature    float64 `toml:"temperature" validate:"gte=0,lte=2"`
	BaseURL        string  `toml:"base_url" validate:"omitempty,url"`
	RequestTimeout string  `toml:"request_timeout"`
	HistoryLimit   int     `toml:"history_limit" validate:"gte=0"`
}

// NewEntry returns an entry with default settings.
func NewEntry() EntryConfig {
	return EntryConfig{
		Name:           DefaultName,
		Provider:       DefaultProvider,
		Model:          DefaultModel,
		MaxTokens:      DefaultMaxTokens,
		Temperature:    DefaultTemperature,
		RequestTimeout: DefaultRequestTimeout,
		HistoryLimit:   DefaultHistoryLimit,
	}
}

func (e *EntryConfig) applyDefaults() {
	if e.Provider == "" {
		e.Provider = DefaultProvider
	}
	if e.Model == "" && e.Provider == DefaultProvider {
		e.Model = DefaultModel
	}
	if e.MaxTokens == 0 {
		e.MaxTokens = DefaultMaxTokens
	}
	if e.RequestTimeout == "" {
		e.RequestTimeout = DefaultRequestTimeout
	}
	if e.HistoryLimit == 0 {
		e.HistoryLimit = DefaultHistoryLimit
	}
	if e.UniqueID == "" && e.APIKey != "" {
		e.UniqueID = UniqueIDFromKey(e.APIKey)
	}
	if e.ID == "" {
		e.ID = e.Slug()
	}
}

// UniqueIDFromKey derives the duplicate-detection key from an API key.
func UniqueIDFromKey(apiKey string) string {
	if len(apiKey) <= UniqueIDLength {
		return apiKey
	}
	return apiKey[:UniqueIDLength]
}

// RequestTimeoutDuration returns the deadline applied to each LLM request.
func (e EntryConfig) RequestTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(e.RequestTimeout)
	if err != nil || d <= 0 {
		return 60 * time.Second
	}
	return d
}

// Slug returns the entity-id friendly form of the entry name.
func (e EntryConfig) Slug() string {
	var sb strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(e.Name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
			lastUnderscore = false
		case !lastUnderscore && sb.Len() > 0:
			sb.WriteByte('_')
			lastUnderscore = true
		}
	}
	slug := strings.TrimSuffix(sb.String(), "_")
	if slug == "" {
		return "openai_assistant"
	}
	return slug
}

// FieldErrors maps a config field name to a human readable problem.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	fields := make([]string, 0, len(fe))
	for f := range fe {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+" "+fe[f])
	}
	return strings.Join(parts, "; ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("toml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the entry and returns FieldErrors keyed by TOML field name.
func (e EntryConfig) Validate() error {
	errs := FieldErrors{}

	if err := validate.Struct(e); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validating entry: %w", err)
		}
		for _, fe := range verrs {
			errs[fe.Field()] = describe(fe)
		}
	}

	if e.Provider == "" || e.Provider == DefaultProvider {
		if _, bad := errs["model"]; !bad && !isKnownModel(e.Model) {
			errs["model"] = "must be one of " + strings.Join(Models, ", ")
		}
	}
	if e.RequestTimeout != "" {
		if _, err := parseDuration(e.RequestTimeout, "request_timeout"); err != nil {
			errs["request_timeout"] = "must be a positive duration like 60s"
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_unless":
		return "is required"
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "url":
		return "must be a valid URL"
	default:
		return "is invalid"
	}
}

func isKnownModel(model string) bool {
	for _, m := range Models {
		if m == model {
			return true
		}
	}
	return false
}
