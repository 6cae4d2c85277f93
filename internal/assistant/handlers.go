package assistant

import (
	"context"
	"fmt"
	"slices"

	"github.com/javiermolinar/hassist/internal/session"
)

// ServiceCaller calls a Home Assistant service.
type ServiceCaller interface {
	CallService(ctx context.Context, domain, service string, data map[string]any) error
}

var (
	automationServices    = []string{"turn_on", "turn_off", "trigger", "reload"}
	scriptServices        = []string{"turn_on", "turn_off", "reload"}
	configurationServices = []string{"reload_core_config", "check_config", "reload_all"}
)

// AutomationHandler applies automation suggestions through the automation
// services.
type AutomationHandler struct {
	Caller ServiceCaller
}

// Apply implements Handler.
func (h AutomationHandler) Apply(ctx context.Context, sg session.Suggestion) error {
	return callAllowed(ctx, h.Caller, "automation", automationServices, sg.Payload)
}

// ScriptHandler applies script suggestions through the script services.
type ScriptHandler struct {
	Caller ServiceCaller
}

// Apply implements Handler.
func (h ScriptHandler) Apply(ctx context.Context, sg session.Suggestion) error {
	return callAllowed(ctx, h.Caller, "script", scriptServices, sg.Payload)
}

// ConfigHandler applies configuration suggestions through the core
// homeassistant services.
type ConfigHandler struct {
	Caller ServiceCaller
}

// Apply implements Handler.
func (h ConfigHandler) Apply(ctx context.Context, sg session.Suggestion) error {
	return callAllowed(ctx, h.Caller, "homeassistant", configurationServices, sg.Payload)
}

// DefaultHandlers returns the service-calling handler for every type.
func DefaultHandlers(caller ServiceCaller) Handlers {
	return Handlers{
		Automation:    AutomationHandler{Caller: caller},
		Script:        ScriptHandler{Caller: caller},
		Configuration: ConfigHandler{Caller: caller},
	}
}

// callAllowed calls domain.service when the payload names a service. A
// payload without one applies nothing.
func callAllowed(ctx context.Context, caller ServiceCaller, domain string, allowed []string, payload map[string]any) error {
	service, _ := payload["service"].(string)
	if service == "" {
		return nil
	}
	if !slices.Contains(allowed, service) {
		return fmt.Errorf("%w: %s.%s", ErrServiceNotAllowed, domain, service)
	}
	if caller == nil {
		return fmt.Errorf("calling %s.%s: no home assistant connection", domain, service)
	}

	data := map[string]any{}
	if extra, ok := payload["data"].(map[string]any); ok {
		for k, v := range extra {
			data[k] = v
		}
	}
	switch target := payload["entity_id"].(type) {
	case string:
		if target != "" {
			data["entity_id"] = target
		}
	case []any:
		if len(target) > 0 {
			data["entity_id"] = target
		}
	case []string:
		if len(target) > 0 {
			data["entity_id"] = target
		}
	}

	if err := caller.CallService(ctx, domain, service, data); err != nil {
		return fmt.Errorf("calling %s.%s: %w", domain, service, err)
	}
	return nil
}
