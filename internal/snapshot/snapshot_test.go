package snapshot

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/javiermolinar/hassist/internal/hass"
)

type fakeSource struct {
	entities []hass.EntityEntry
	devices  []hass.DeviceEntry
	areas    []hass.AreaEntry
	states   []hass.State
	err      error
}

func (f *fakeSource) EntityRegistry(context.Context) ([]hass.EntityEntry, error) {
	return f.entities, nil
}

func (f *fakeSource) DeviceRegistry(context.Context) ([]hass.DeviceEntry, error) {
	return f.devices, f.err
}

func (f *fakeSource) AreaRegistry(context.Context) ([]hass.AreaEntry, error) {
	return f.areas, nil
}

func (f *fakeSource) States(context.Context) ([]hass.State, error) {
	return f.states, nil
}

func automation(id, name, state string) hass.State {
	return hass.State{
		EntityID:   id,
		State:      state,
		Attributes: map[string]any{"friendly_name": name},
	}
}

func TestBuild(t *testing.T) {
	src := &fakeSource{
		entities: []hass.EntityEntry{
			{EntityID: "sensor.temp"},
			{EntityID: "light.kitchen"},
			{EntityID: "light.hall"},
		},
		devices: []hass.DeviceEntry{{ID: "a"}, {ID: "b"}},
		areas:   []hass.AreaEntry{{AreaID: "kitchen", Name: "Kitchen"}, {AreaID: "hall", Name: "Hall"}},
		states: []hass.State{
			automation("automation.wake", "Wake up", "on"),
			automation("automation.away", "Away", "off"),
			{EntityID: "script.bedtime", State: "off"},
			{EntityID: "light.kitchen", State: "on"},
		},
	}

	got, err := NewBuilder(src).Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	want := `=== ENTITIES BY DOMAIN ===
light: 2 entities
sensor: 1 entities

=== CONFIGURED AREAS ===
- Hall
- Kitchen

=== DEVICES ===
Total: 2 devices

=== AUTOMATIONS ===
Total: 2 automations
- Away: disabled
- Wake up: enabled

=== SCRIPTS ===
Total: 1 scripts`

	if got != want {
		t.Errorf("Build() mismatch\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestRender_AutomationsCappedAndSorted(t *testing.T) {
	var states []hass.State
	for _, id := range []string{"g", "c", "a", "f", "e", "b", "d"} {
		states = append(states, hass.State{EntityID: "automation." + id, State: "on"})
	}

	out := Render(Data{States: states})

	if !strings.Contains(out, "Total: 7 automations") {
		t.Errorf("expected total of 7, got:\n%s", out)
	}
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		if !strings.Contains(out, "- automation."+id+": enabled") {
			t.Errorf("expected automation.%s listed", id)
		}
	}
	for _, id := range []string{"f", "g"} {
		if strings.Contains(out, "automation."+id) {
			t.Errorf("automation.%s should not be listed", id)
		}
	}
}

func TestRender_Deterministic(t *testing.T) {
	a := Data{
		Entities: []hass.EntityEntry{{EntityID: "switch.a"}, {EntityID: "light.b"}},
		Areas:    []hass.AreaEntry{{Name: "Office"}, {Name: "Attic"}},
		States:   []hass.State{{EntityID: "automation.y", State: "on"}, {EntityID: "automation.x", State: "off"}},
	}
	b := Data{
		Entities: []hass.EntityEntry{a.Entities[1], a.Entities[0]},
		Areas:    []hass.AreaEntry{a.Areas[1], a.Areas[0]},
		States:   []hass.State{a.States[1], a.States[0]},
	}

	if Render(a) != Render(b) {
		t.Error("Render() output depends on input order")
	}
}

func TestBuild_RegistryError(t *testing.T) {
	src := &fakeSource{err: errors.New("boom")}

	_, err := NewBuilder(src).Build(context.Background())
	if !errors.Is(err, ErrRegistryAccess) {
		t.Fatalf("expected ErrRegistryAccess, got %v", err)
	}
	if !strings.Contains(err.Error(), "device registry") {
		t.Errorf("expected registry name in error, got %v", err)
	}
}
