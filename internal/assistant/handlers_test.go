package assistant

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/javiermolinar/hassist/internal/session"
)

type serviceCall struct {
	domain, service string
	data            map[string]any
}

type fakeCaller struct {
	calls []serviceCall
	err   error
}

func (f *fakeCaller) CallService(_ context.Context, domain, service string, data map[string]any) error {
	f.calls = append(f.calls, serviceCall{domain, service, data})
	return f.err
}

func TestDefaultHandlers(t *testing.T) {
	tests := []struct {
		name     string
		sg       session.Suggestion
		wantCall *serviceCall
		wantErr  error
	}{
		{
			name: "automation turn off",
			sg: session.Suggestion{Type: session.TypeAutomation, Payload: map[string]any{
				"service": "turn_off", "entity_id": "automation.night",
			}},
			wantCall: &serviceCall{"automation", "turn_off", map[string]any{"entity_id": "automation.night"}},
		},
		{
			name: "script with list target and data",
			sg: session.Suggestion{Type: session.TypeScript, Payload: map[string]any{
				"service":   "turn_on",
				"entity_id": []any{"script.a", "script.b"},
				"data":      map[string]any{"variables": map[string]any{"x": 1.0}},
			}},
			wantCall: &serviceCall{"script", "turn_on", map[string]any{
				"entity_id": []any{"script.a", "script.b"},
				"variables": map[string]any{"x": 1.0},
			}},
		},
		{
			name:     "configuration reload",
			sg:       session.Suggestion{Type: session.TypeConfiguration, Payload: map[string]any{"service": "reload_core_config"}},
			wantCall: &serviceCall{"homeassistant", "reload_core_config", map[string]any{}},
		},
		{
			name: "no service is a no-op",
			sg:   session.Suggestion{Type: session.TypeAutomation, Payload: map[string]any{"alias": "New automation"}},
		},
		{
			name:    "disallowed service",
			sg:      session.Suggestion{Type: session.TypeConfiguration, Payload: map[string]any{"service": "stop"}},
			wantErr: ErrServiceNotAllowed,
		},
		{
			name:    "script cannot trigger",
			sg:      session.Suggestion{Type: session.TypeScript, Payload: map[string]any{"service": "trigger"}},
			wantErr: ErrServiceNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caller := &fakeCaller{}
			h, err := DefaultHandlers(caller).For(tt.sg.Type)
			if err != nil {
				t.Fatalf("For() error = %v", err)
			}

			err = h.Apply(context.Background(), tt.sg)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Apply() error = %v, want %v", err, tt.wantErr)
			}

			if tt.wantCall == nil {
				if len(caller.calls) != 0 {
					t.Errorf("expected no service call, got %+v", caller.calls)
				}
				return
			}
			if len(caller.calls) != 1 {
				t.Fatalf("expected 1 service call, got %d", len(caller.calls))
			}
			if !reflect.DeepEqual(caller.calls[0], *tt.wantCall) {
				t.Errorf("call = %+v, want %+v", caller.calls[0], *tt.wantCall)
			}
		})
	}
}

func TestDefaultHandlers_CallerError(t *testing.T) {
	caller := &fakeCaller{err: errors.New("401")}
	sg := session.Suggestion{Type: session.TypeAutomation, Payload: map[string]any{"service": "reload"}}

	err := AutomationHandler{Caller: caller}.Apply(context.Background(), sg)
	if err == nil || !errors.Is(err, caller.err) {
		t.Errorf("expected wrapped caller error, got %v", err)
	}
}

func TestDefaultHandlers_NoCaller(t *testing.T) {
	sg := session.Suggestion{Type: session.TypeScript, Payload: map[string]any{"service": "reload"}}
	if err := (ScriptHandler{}).Apply(context.Background(), sg); err == nil {
		t.Error("expected error without a caller")
	}
}
