// Package setup implements the one-time configuration flow that adds an
// assistant entry.
package setup

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/javiermolinar/hassist/internal/config"
	"github.com/javiermolinar/hassist/internal/llm"
)

// Form-level error codes, reported under BaseField.
const (
	BaseField = "base"

	ErrCodeInvalidAuth   = "invalid_auth"
	ErrCodeRateLimit     = "rate_limit"
	ErrCodeCannotConnect = "cannot_connect"
)

// DocsURL is where users obtain an API key.
const DocsURL = "https://platform.openai.com/api-keys"

const (
	checkPrompt    = "Test"
	checkMaxTokens = 10
	checkTimeout   = 30 * time.Second
)

// FormErrors maps a form field, or BaseField, to an error code or message.
type FormErrors map[string]string

func (fe FormErrors) Error() string {
	fields := make([]string, 0, len(fe))
	for f := range fe {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+fe[f])
	}
	return "setup failed: " + strings.Join(parts, "; ")
}

// Form is the user input of the flow.
type Form struct {
	Name        string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	Provider    string
	BaseURL     string
}

// DefaultForm returns the form prefilled with defaults.
func DefaultForm() Form {
	e := config.NewEntry()
	return Form{
		Name:        e.Name,
		Model:       e.Model,
		MaxTokens:   e.MaxTokens,
		Temperature: e.Temperature,
		Provider:    e.Provider,
	}
}

func (f Form) entry() config.EntryConfig {
	e := config.NewEntry()
	e.Name = strings.TrimSpace(f.Name)
	e.APIKey = strings.TrimSpace(f.APIKey)
	e.Model = strings.TrimSpace(f.Model)
	e.MaxTokens = f.MaxTokens
	e.Temperature = f.Temperature
	if f.Provider != "" {
		e.Provider = f.Provider
	}
	e.BaseURL = strings.TrimSpace(f.BaseURL)
	e.UniqueID = config.UniqueIDFromKey(e.APIKey)
	return e
}

// ClientFactory builds the client used for the live key check.
type ClientFactory func(provider string, opts llm.Options) (llm.Client, error)

// Flow validates a form, checks the key and registers the entry.
type Flow struct {
	cfg       *config.Config
	newClient ClientFactory
	log       zerolog.Logger
}

// NewFlow creates a flow that adds entries to cfg.
func NewFlow(cfg *config.Config, newClient ClientFactory, log zerolog.Logger) *Flow {
	if newClient == nil {
		newClient = llm.NewClient
	}
	return &Flow{cfg: cfg, newClient: newClient, log: log.With().Str("component", "setup").Logger()}
}

// Submit runs the flow. Field problems and failed key checks return
// FormErrors; an installation with the same key prefix aborts with
// config.ErrAlreadyConfigured. On success the entry is added to the config,
// which the caller saves.
func (f *Flow) Submit(ctx context.Context, form Form) (config.EntryConfig, error) {
	e := form.entry()
	e.ID = f.uniqueEntryID(e.Slug())

	if err := e.Validate(); err != nil {
		var fe config.FieldErrors
		if errors.As(err, &fe) {
			return config.EntryConfig{}, FormErrors(fe)
		}
		return config.EntryConfig{}, err
	}

	if code := f.checkKey(ctx, e); code != "" {
		return config.EntryConfig{}, FormErrors{BaseField: code}
	}

	if e.UniqueID != "" && f.cfg.HasUniqueID(e.UniqueID) {
		return config.EntryConfig{}, config.ErrAlreadyConfigured
	}
	if err := f.cfg.AddEntry(e); err != nil {
		return config.EntryConfig{}, err
	}
	f.log.Info().Str("entry", e.ID).Str("model", e.Model).Msg("entry configured")
	return e, nil
}

// checkKey sends a trivial request and returns the error code, or "".
func (f *Flow) checkKey(ctx context.Context, e config.EntryConfig) string {
	client, err := f.newClient(e.Provider, llm.Options{
		APIKey:      e.APIKey,
		Model:       e.Model,
		BaseURL:     e.BaseURL,
		MaxTokens:   checkMaxTokens,
		Temperature: e.Temperature,
	})
	if err != nil {
		f.log.Error().Err(err).Msg("creating client for key check")
		return ErrCodeCannotConnect
	}

	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	_, err = client.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: checkPrompt}})
	return ErrorCode(err)
}

// ErrorCode maps a key check error to its form error code.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, llm.ErrAuthentication):
		return ErrCodeInvalidAuth
	case errors.Is(err, llm.ErrRateLimited):
		return ErrCodeRateLimit
	default:
		return ErrCodeCannotConnect
	}
}

func (f *Flow) uniqueEntryID(base string) string {
	id := base
	for n := 2; ; n++ {
		if _, taken := f.cfg.Entry(id); !taken {
			return id
		}
		id = fmt.Sprintf("%s_%d", base, n)
	}
}
