// Package zones loads the avalanche center and zone configuration and maps
// URL slugs to the provider's center and zone identifiers.
package zones

import (
	"fmt"
	"os"

	"github.com/couchcryptid/avyrss/internal/domain"
	"gopkg.in/yaml.v3"
)

// Zone is one forecast zone together with the center that publishes it.
type Zone struct {
	CenterSlug string
	CenterName string
	CenterID   string
	ZoneSlug   string
	ZoneName   string
	ZoneID     string
}

// Center groups the zones of one forecasting organization, in file order.
type Center struct {
	Slug  string
	Name  string
	ID    string
	Zones []Zone
}

// Registry is read-only after Load and safe for concurrent use.
type Registry struct {
	centers []Center
	index   map[string]int // center slug -> position in centers
}

type fileLayout struct {
	Centers yaml.Node `yaml:"avalanche_centers"`
}

type centerEntry struct {
	Name  string      `yaml:"name"`
	ID    flexID      `yaml:"id"`
	Zones []zoneEntry `yaml:"zones"`
}

type zoneEntry struct {
	Name string `yaml:"name"`
	Slug string `yaml:"slug"`
	ID   flexID `yaml:"id"`
}

// flexID accepts both numeric and string identifiers; the provider uses numbers
// for zone ids and short codes for center ids.
type flexID string

func (f *flexID) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: id must be a scalar", node.Line)
	}
	*f = flexID(node.Value)
	return nil
}

// Load reads the zone configuration file at path.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read zone config %s: %w", path, err)
	}
	r, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("zone config %s: %w", path, err)
	}
	return r, nil
}

// Parse decodes zone configuration YAML. Centers and zones keep the order in
// which they appear in the document.
func Parse(data []byte) (*Registry, error) {
	var doc fileLayout
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	r := &Registry{index: make(map[string]int)}
	if doc.Centers.Kind == 0 {
		return r, nil
	}
	if doc.Centers.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("avalanche_centers must be a mapping (line %d)", doc.Centers.Line)
	}

	// Mapping node content alternates key, value.
	for i := 0; i+1 < len(doc.Centers.Content); i += 2 {
		slug := doc.Centers.Content[i].Value
		var entry centerEntry
		if err := doc.Centers.Content[i+1].Decode(&entry); err != nil {
			return nil, fmt.Errorf("center %q: %w", slug, err)
		}
		if _, dup := r.index[slug]; dup {
			return nil, fmt.Errorf("center %q defined twice", slug)
		}

		center := Center{Slug: slug, Name: entry.Name, ID: string(entry.ID)}
		for _, z := range entry.Zones {
			if z.Slug == "" || z.ID == "" {
				return nil, fmt.Errorf("center %q: zone %q is missing slug or id", slug, z.Name)
			}
			center.Zones = append(center.Zones, Zone{
				CenterSlug: slug,
				CenterName: entry.Name,
				CenterID:   string(entry.ID),
				ZoneSlug:   z.Slug,
				ZoneName:   z.Name,
				ZoneID:     string(z.ID),
			})
		}

		r.index[slug] = len(r.centers)
		r.centers = append(r.centers, center)
	}
	return r, nil
}

// Lookup resolves a center/zone slug pair. The error wraps domain.ErrNotFound
// when either slug is unknown.
func (r *Registry) Lookup(centerSlug, zoneSlug string) (Zone, error) {
	i, ok := r.index[centerSlug]
	if !ok {
		return Zone{}, fmt.Errorf("center %q: %w", centerSlug, domain.ErrNotFound)
	}
	for _, z := range r.centers[i].Zones {
		if z.ZoneSlug == zoneSlug {
			return z, nil
		}
	}
	return Zone{}, fmt.Errorf("zone %q in center %q: %w", zoneSlug, centerSlug, domain.ErrNotFound)
}

// AllZones returns every zone in configuration order.
func (r *Registry) AllZones() []Zone {
	var out []Zone
	for _, c := range r.centers {
		out = append(out, c.Zones...)
	}
	return out
}

// Centers returns the configured centers in configuration order.
func (r *Registry) Centers() []Center {
	out := make([]Center, len(r.centers))
	for i, c := range r.centers {
		c.Zones = append([]Zone(nil), c.Zones...)
		out[i] = c
	}
	return out
}
