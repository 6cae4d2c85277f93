// Package snapshot renders a textual summary of a Home Assistant instance for
// use as prompt context.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/javiermolinar/hassist/internal/hass"
	"golang.org/x/sync/errgroup"
)

// ErrRegistryAccess wraps any failure to read a registry or the state store.
var ErrRegistryAccess = errors.New("registry access failed")

// MaxListedAutomations caps the automations listed by name.
const MaxListedAutomations = 5

// Source is read-only access to the Home Assistant registries.
type Source interface {
	EntityRegistry(ctx context.Context) ([]hass.EntityEntry, error)
	DeviceRegistry(ctx context.Context) ([]hass.DeviceEntry, error)
	AreaRegistry(ctx context.Context) ([]hass.AreaEntry, error)
	States(ctx context.Context) ([]hass.State, error)
}

// Builder produces the context block.
type Builder struct {
	src Source
}

// NewBuilder creates a builder reading from src.
func NewBuilder(src Source) *Builder {
	return &Builder{src: src}
}

// Data is the raw registry content a snapshot is rendered from.
type Data struct {
	Entities []hass.EntityEntry
	Devices  []hass.DeviceEntry
	Areas    []hass.AreaEntry
	States   []hass.State
}

// Build reads every registry concurrently and renders the result.
func (b *Builder) Build(ctx context.Context) (string, error) {
	data, err := b.Collect(ctx)
	if err != nil {
		return "", err
	}
	return Render(data), nil
}

// Collect reads the registries without rendering them.
func (b *Builder) Collect(ctx context.Context) (Data, error) {
	var d Data
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		entities, err := b.src.EntityRegistry(gctx)
		if err != nil {
			return fmt.Errorf("%w: entity registry: %w", ErrRegistryAccess, err)
		}
		d.Entities = entities
		return nil
	})
	g.Go(func() error {
		devices, err := b.src.DeviceRegistry(gctx)
		if err != nil {
			return fmt.Errorf("%w: device registry: %w", ErrRegistryAccess, err)
		}
		d.Devices = devices
		return nil
	})
	g.Go(func() error {
		areas, err := b.src.AreaRegistry(gctx)
		if err != nil {
			return fmt.Errorf("%w: area registry: %w", ErrRegistryAccess, err)
		}
		d.Areas = areas
		return nil
	})
	g.Go(func() error {
		states, err := b.src.States(gctx)
		if err != nil {
			return fmt.Errorf("%w: states: %w", ErrRegistryAccess, err)
		}
		d.States = states
		return nil
	})

	if err := g.Wait(); err != nil {
		return Data{}, err
	}
	return d, nil
}

// Render formats d. The output depends only on the content of d, not on the
// order registries returned it in.
func Render(d Data) string {
	var sb strings.Builder

	counts := make(map[string]int)
	for _, e := range d.Entities {
		counts[e.Domain()]++
	}
	domains := make([]string, 0, len(counts))
	for domain := range counts {
		domains = append(domains, domain)
	}
	sort.Strings(domains)

	sb.WriteString("=== ENTITIES BY DOMAIN ===\n")
	for _, domain := range domains {
		fmt.Fprintf(&sb, "%s: %d entities\n", domain, counts[domain])
	}

	areas := make([]string, 0, len(d.Areas))
	for _, a := range d.Areas {
		areas = append(areas, a.Name)
	}
	sort.Strings(areas)

	sb.WriteString("\n=== CONFIGURED AREAS ===\n")
	for _, name := range areas {
		fmt.Fprintf(&sb, "- %s\n", name)
	}

	sb.WriteString("\n=== DEVICES ===\n")
	fmt.Fprintf(&sb, "Total: %d devices\n", len(d.Devices))

	automations := statesInDomain(d.States, "automation")
	sb.WriteString("\n=== AUTOMATIONS ===\n")
	fmt.Fprintf(&sb, "Total: %d automations\n", len(automations))
	for i, s := range automations {
		if i == MaxListedAutomations {
			break
		}
		label := "disabled"
		if s.State == "on" {
			label = "enabled"
		}
		fmt.Fprintf(&sb, "- %s: %s\n", s.FriendlyName(), label)
	}

	scripts := statesInDomain(d.States, "script")
	sb.WriteString("\n=== SCRIPTS ===\n")
	fmt.Fprintf(&sb, "Total: %d scripts", len(scripts))

	return sb.String()
}

// statesInDomain returns the states of domain sorted by entity id.
func statesInDomain(states []hass.State, domain string) []hass.State {
	var out []hass.State
	for _, s := range states {
		if s.Domain() == domain {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntityID < out[j].EntityID })
	return out
}
