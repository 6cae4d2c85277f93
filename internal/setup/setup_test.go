package setup

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/javiermolinar/hassist/internal/config"
	"github.com/javiermolinar/hassist/internal/llm"
)

type checkClient struct {
	err error
}

func (c checkClient) Chat(context.Context, []llm.Message) (string, error) {
	return "ok", c.err
}

func factory(err error, captured *llm.Options) ClientFactory {
	return func(_ string, opts llm.Options) (llm.Client, error) {
		if captured != nil {
			*captured = opts
		}
		return checkClient{err: err}, nil
	}
}

func validForm() Form {
	f := DefaultForm()
	f.APIKey = "sk-abcdefgh12345"
	return f
}

func TestDefaultForm(t *testing.T) {
	f := DefaultForm()
	if f.Name != "OpenAI Assistant" || f.Model != "gpt-4" || f.MaxTokens != 2000 || f.Temperature != 0.7 {
		t.Errorf("unexpected defaults %+v", f)
	}
}

func TestSubmit(t *testing.T) {
	cfg := config.Default()
	var opts llm.Options
	flow := NewFlow(cfg, factory(nil, &opts), zerolog.Nop())

	e, err := flow.Submit(context.Background(), validForm())
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if e.UniqueID != "sk-abcde" {
		t.Errorf("UniqueID = %q, want first 8 chars of key", e.UniqueID)
	}
	if e.ID != "openai_assistant" {
		t.Errorf("ID = %q", e.ID)
	}
	if len(cfg.Entries) != 1 {
		t.Errorf("expected entry added to config, got %d", len(cfg.Entries))
	}
	if opts.MaxTokens != 10 || opts.APIKey != "sk-abcdefgh12345" {
		t.Errorf("unexpected key check options %+v", opts)
	}
}

func TestSubmit_FieldErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Form)
		field  string
	}{
		{"max tokens below range", func(f *Form) { f.MaxTokens = 50 }, "max_tokens"},
		{"max tokens above range", func(f *Form) { f.MaxTokens = 5000 }, "max_tokens"},
		{"temperature above range", func(f *Form) { f.Temperature = 2.5 }, "temperature"},
		{"unknown model", func(f *Form) { f.Model = "davinci" }, "model"},
		{"missing key", func(f *Form) { f.APIKey = "" }, "api_key"},
		{"missing name", func(f *Form) { f.Name = "  " }, "name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			called := false
			flow := NewFlow(cfg, func(string, llm.Options) (llm.Client, error) {
				called = true
				return checkClient{}, nil
			}, zerolog.Nop())

			form := validForm()
			tt.mutate(&form)
			_, err := flow.Submit(context.Background(), form)

			var fe FormErrors
			if !errors.As(err, &fe) {
				t.Fatalf("expected FormErrors, got %v", err)
			}
			if _, ok := fe[tt.field]; !ok {
				t.Errorf("expected error on %s, got %v", tt.field, fe)
			}
			if called {
				t.Error("key check ran despite invalid form")
			}
			if len(cfg.Entries) != 0 {
				t.Error("entry added despite errors")
			}
		})
	}
}

func TestSubmit_KeyCheckErrors(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{llm.ErrAuthentication, ErrCodeInvalidAuth},
		{llm.ErrRateLimited, ErrCodeRateLimit},
		{llm.ErrTransport, ErrCodeCannotConnect},
		{errors.New("surprise"), ErrCodeCannotConnect},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			cfg := config.Default()
			flow := NewFlow(cfg, factory(tt.err, nil), zerolog.Nop())

			_, err := flow.Submit(context.Background(), validForm())
			var fe FormErrors
			if !errors.As(err, &fe) {
				t.Fatalf("expected FormErrors, got %v", err)
			}
			if fe[BaseField] != tt.want {
				t.Errorf("base error = %q, want %q", fe[BaseField], tt.want)
			}
			if len(cfg.Entries) != 0 {
				t.Error("entry added despite failed key check")
			}
		})
	}
}

func TestSubmit_AlreadyConfigured(t *testing.T) {
	cfg := config.Default()
	flow := NewFlow(cfg, factory(nil, nil), zerolog.Nop())

	if _, err := flow.Submit(context.Background(), validForm()); err != nil {
		t.Fatalf("first Submit() error = %v", err)
	}

	// Same first 8 characters, different key.
	form := validForm()
	form.APIKey = "sk-abcdeXXXXXXXX"
	form.Name = "Second"
	_, err := flow.Submit(context.Background(), form)
	if !errors.Is(err, config.ErrAlreadyConfigured) {
		t.Fatalf("expected ErrAlreadyConfigured, got %v", err)
	}
	if len(cfg.Entries) != 1 {
		t.Errorf("expected 1 entry, got %d", len(cfg.Entries))
	}
}

func TestSubmit_KeylessEntries(t *testing.T) {
	cfg := config.Default()
	flow := NewFlow(cfg, factory(nil, nil), zerolog.Nop())

	forms := []Form{
		{Name: "Kitchen", Provider: "ollama", Model: "llama3", MaxTokens: 500, Temperature: 0.7},
		{Name: "Garage", Provider: "ollama", Model: "mistral", MaxTokens: 500, Temperature: 0.7},
	}
	for _, form := range forms {
		e, err := flow.Submit(context.Background(), form)
		if err != nil {
			t.Fatalf("Submit(%s) error = %v", form.Name, err)
		}
		if e.UniqueID != "" {
			t.Errorf("UniqueID = %q, want empty for a keyless entry", e.UniqueID)
		}
	}
	if len(cfg.Entries) != 2 {
		t.Errorf("expected 2 entries, got %d", len(cfg.Entries))
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestSubmit_UniqueEntryID(t *testing.T) {
	cfg := config.Default()
	flow := NewFlow(cfg, factory(nil, nil), zerolog.Nop())

	if _, err := flow.Submit(context.Background(), validForm()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	form := validForm()
	form.APIKey = "sk-zzzzzzzz99999"
	e, err := flow.Submit(context.Background(), form)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if e.ID != "openai_assistant_2" {
		t.Errorf("ID = %q, want openai_assistant_2", e.ID)
	}
}
