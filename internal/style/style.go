// Package style maps feature records to concrete drawing directives.
//
// Rules form an ordered list evaluated first-match-wins; resolution is
// a pure function of (record, zoom, rule set) so that identical inputs
// always draw identically.
package style

import (
	"fmt"
	"image/color"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/FreemapSlovakia/freemap-outdoor-map/internal/feature"
)

// Directive holds the concrete drawing parameters for one feature
type Directive struct {
	HasStroke   bool
	Stroke      color.NRGBA
	Width       float64
	Dash        []float64
	HasFill     bool
	Fill        color.NRGBA
	PointRadius float64
	Label       bool
	FontSize    float64
}

// Rule is one declarative style rule. Empty selector fields match
// everything; the special stroke value "route" derives the color from
// the record's route attributes.
type Rule struct {
	Name       string             `yaml:"name"`
	Categories []feature.Category `yaml:"categories"`
	Kinds      []string           `yaml:"kinds"`
	Networks   []string           `yaml:"networks"`
	MinZoom    int                `yaml:"min_zoom"`
	MaxZoom    int                `yaml:"max_zoom"` // 0 = unbounded

	Stroke      string    `yaml:"stroke"`
	Width       float64   `yaml:"width"`
	Dash        []float64 `yaml:"dash"`
	Fill        string    `yaml:"fill"`
	PointRadius float64   `yaml:"point_radius"`
	Label       bool      `yaml:"label"`
	FontSize    float64   `yaml:"font_size"`
}

func (r *Rule) matches(rec feature.Record, zoom int) bool {
	if zoom < r.MinZoom {
		return false
	}
	if r.MaxZoom > 0 && zoom > r.MaxZoom {
		return false
	}
	if len(r.Categories) > 0 && !containsCat(r.Categories, rec.Category) {
		return false
	}
	if len(r.Kinds) > 0 && !contains(r.Kinds, rec.Kind) {
		return false
	}
	if len(r.Networks) > 0 && !contains(r.Networks, rec.Network) {
		return false
	}
	return true
}

// Set is an immutable, priority-ordered rule set
type Set struct {
	rules []Rule
}

type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// Load reads a rule set from a YAML file. Rule order in the file is
// priority order.
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read style file: %w", err)
	}

	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse style YAML: %w", err)
	}

	s := &Set{rules: f.Rules}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Set) validate() error {
	for i, r := range s.rules {
		if r.Stroke != "" && r.Stroke != "route" {
			if _, err := ParseColor(r.Stroke); err != nil {
				return fmt.Errorf("rule %d (%s): %w", i, r.Name, err)
			}
		}
		if r.Fill != "" {
			if _, err := ParseColor(r.Fill); err != nil {
				return fmt.Errorf("rule %d (%s): %w", i, r.Name, err)
			}
		}
	}
	return nil
}

// Resolve returns the drawing directive for a record at a zoom level.
// Rules are tried in declared order; the first match wins. No match
// means the feature is not drawn.
func (s *Set) Resolve(rec feature.Record, zoom int) (Directive, bool) {
	for i := range s.rules {
		r := &s.rules[i]
		if !r.matches(rec, zoom) {
			continue
		}

		d := Directive{
			Width:       r.Width,
			Dash:        r.Dash,
			PointRadius: r.PointRadius,
			Label:       r.Label,
			FontSize:    r.FontSize,
		}
		if d.FontSize == 0 && d.Label {
			d.FontSize = 11
		}

		switch r.Stroke {
		case "":
		case "route":
			d.HasStroke = true
			d.Stroke = routeColor(rec)
		default:
			d.HasStroke = true
			d.Stroke = MustColor(r.Stroke) // validated at load
		}

		if r.Fill != "" {
			d.HasFill = true
			d.Fill = MustColor(r.Fill)
		}

		return d, true
	}
	return Directive{}, false
}

// defaultRouteColors maps route networks to their conventional colors
var defaultRouteColors = map[string]color.NRGBA{
	"hiking":  MustColor("red"),
	"bicycle": MustColor("purple"),
	"ski":     MustColor("blue"),
	"horse":   MustColor("#a04000"),
}

var fallbackRouteColor = MustColor("gray")

// routeColor derives a stroke color from route attributes: explicit
// colour tag, then symbol prefix ("red:red_bar"), then the network
// default, then gray.
func routeColor(rec feature.Record) color.NRGBA {
	if rec.Color != "" {
		if c, err := ParseColor(rec.Color); err == nil {
			return c
		}
	}
	if rec.Symbol != "" {
		for i, ch := range rec.Symbol {
			if ch == ':' {
				if c, err := ParseColor(rec.Symbol[:i]); err == nil {
					return c
				}
				break
			}
		}
	}
	if c, ok := defaultRouteColors[rec.Network]; ok {
		return c
	}
	return fallbackRouteColor
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func containsCat(list []feature.Category, v feature.Category) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
