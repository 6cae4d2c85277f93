// Package hass talks to a Home Assistant instance: registries and states over
// the WebSocket API, state updates, events and service calls over REST.
package hass

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Client errors.
var (
	ErrAuthInvalid  = errors.New("home assistant rejected the access token")
	ErrDisconnected = errors.New("home assistant connection closed")
	ErrUnauthorized = errors.New("home assistant returned 401 unauthorized")
)

// CommandError is the error payload of a failed WebSocket command.
type CommandError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("home assistant command failed: %s: %s", e.Code, e.Message)
}

// EntityEntry is one row of the entity registry.
type EntityEntry struct {
	EntityID   string `json:"entity_id"`
	Name       string `json:"name"`
	Platform   string `json:"platform"`
	DeviceID   string `json:"device_id"`
	AreaID     string `json:"area_id"`
	DisabledBy string `json:"disabled_by"`
}

// Domain returns the part of the entity id before the first dot.
func (e EntityEntry) Domain() string {
	return Domain(e.EntityID)
}

// DeviceEntry is one row of the device registry.
type DeviceEntry struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
	AreaID       string `json:"area_id"`
}

// AreaEntry is one row of the area registry.
type AreaEntry struct {
	AreaID string `json:"area_id"`
	Name   string `json:"name"`
}

// State is the current state of one entity.
type State struct {
	EntityID    string         `json:"entity_id"`
	State       string         `json:"state"`
	Attributes  map[string]any `json:"attributes"`
	LastChanged time.Time      `json:"last_changed"`
}

// Domain returns the part of the entity id before the first dot.
func (s State) Domain() string {
	return Domain(s.EntityID)
}

// FriendlyName returns the friendly_name attribute, or the entity id.
func (s State) FriendlyName() string {
	if name, ok := s.Attributes["friendly_name"].(string); ok && name != "" {
		return name
	}
	return s.EntityID
}

// Domain returns the domain part of an entity id.
func Domain(entityID string) string {
	domain, _, _ := strings.Cut(entityID, ".")
	return domain
}
