package style

import (
	"image/color"
	"reflect"
	"testing"

	"github.com/FreemapSlovakia/freemap-outdoor-map/internal/feature"
)

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.NRGBA
		wantErr bool
	}{
		{in: "#ff0000", want: color.NRGBA{0xff, 0, 0, 0xff}},
		{in: "#F00", want: color.NRGBA{0xff, 0, 0, 0xff}},
		{in: "#11223344", want: color.NRGBA{0x11, 0x22, 0x33, 0x44}},
		{in: "red", want: color.NRGBA{0xcc, 0, 0, 0xff}},
		{in: "  Blue ", want: color.NRGBA{0x35, 0x56, 0xdd, 0xff}},
		{in: "nope", wantErr: true},
		{in: "#12345", wantErr: true},
		{in: "#zzzzzz", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseColor(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseColor(%q) succeeded, want error", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseColor(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseColor(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestResolveFirstMatchWins(t *testing.T) {
	s := &Set{rules: []Rule{
		{Name: "specific", Categories: []feature.Category{feature.CategoryLandcover},
			Kinds: []string{"forest"}, Fill: "#00ff00"},
		{Name: "generic", Categories: []feature.Category{feature.CategoryLandcover},
			Fill: "#ffffff"},
	}}

	d, ok := s.Resolve(feature.Record{Category: feature.CategoryLandcover, Kind: "forest"}, 10)
	if !ok {
		t.Fatal("no rule matched")
	}
	if d.Fill != MustColor("#00ff00") {
		t.Errorf("first rule did not win: fill %v", d.Fill)
	}

	d, ok = s.Resolve(feature.Record{Category: feature.CategoryLandcover, Kind: "meadow"}, 10)
	if !ok || d.Fill != MustColor("#ffffff") {
		t.Errorf("generic rule did not apply: %v %v", ok, d.Fill)
	}
}

func TestResolveZoomGates(t *testing.T) {
	s := Default()
	rec := feature.Record{Category: feature.CategoryPOI, Kind: "spring"}

	if _, ok := s.Resolve(rec, 13); ok {
		t.Error("POI drawn below its minimum zoom")
	}
	if _, ok := s.Resolve(rec, 14); !ok {
		t.Error("POI not drawn at its minimum zoom")
	}
}

func TestResolveNoMatch(t *testing.T) {
	s := &Set{rules: []Rule{
		{Categories: []feature.Category{feature.CategoryPeak}, Fill: "#000000"},
	}}
	if _, ok := s.Resolve(feature.Record{Category: feature.CategoryRoute}, 14); ok {
		t.Error("unmatched record resolved to a directive")
	}
}

func TestResolveIsPure(t *testing.T) {
	s := Default()
	rec := feature.Record{
		Category: feature.CategoryRoute,
		Network:  "hiking",
		Symbol:   "red:red_bar",
	}

	first, ok := s.Resolve(rec, 13)
	if !ok {
		t.Fatal("route did not resolve")
	}
	for i := 0; i < 100; i++ {
		got, ok := s.Resolve(rec, 13)
		if !ok || !reflect.DeepEqual(first, got) {
			t.Fatalf("resolution %d differs: %+v vs %+v", i, first, got)
		}
	}
}

func TestRouteColorDerivation(t *testing.T) {
	tests := []struct {
		name string
		rec  feature.Record
		want color.NRGBA
	}{
		{
			name: "explicit colour tag wins",
			rec:  feature.Record{Category: feature.CategoryRoute, Color: "#123456", Symbol: "red:red_bar", Network: "ski"},
			want: color.NRGBA{0x12, 0x34, 0x56, 0xff},
		},
		{
			name: "symbol prefix",
			rec:  feature.Record{Category: feature.CategoryRoute, Symbol: "yellow:yellow_bar", Network: "ski"},
			want: namedColors["yellow"],
		},
		{
			name: "network default",
			rec:  feature.Record{Category: feature.CategoryRoute, Network: "hiking"},
			want: namedColors["red"],
		},
		{
			name: "fallback",
			rec:  feature.Record{Category: feature.CategoryRoute, Network: "unknown"},
			want: namedColors["gray"],
		},
	}

	s := Default()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ok := s.Resolve(tt.rec, 13)
			if !ok {
				t.Fatal("route did not resolve")
			}
			if d.Stroke != tt.want {
				t.Errorf("stroke = %v, want %v", d.Stroke, tt.want)
			}
		})
	}
}
