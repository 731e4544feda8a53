package render

import (
	"fmt"
	"math"
	"os"
	"regexp"
	"strconv"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// DefaultMissingFill colours regions without a value.
const DefaultMissingFill = "#cccccc"

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Palette is an ordered colour ramp from low to high values.
type Palette struct {
	Name    string   `yaml:"name"`
	Colors  []string `yaml:"colors"`
	Missing string   `yaml:"missing"`
}

// DefaultPalette is a nine-step sequential blue ramp.
func DefaultPalette() Palette {
	return Palette{
		Name: "blues",
		Colors: []string{
			"#f7fbff", "#deebf7", "#c6dbef", "#9ecae1", "#6baed6",
			"#4292c6", "#2171b5", "#08519c", "#08306b",
		},
		Missing: DefaultMissingFill,
	}
}

// LoadPalette reads a palette from a YAML file:
//
//	name: greens
//	colors: ["#f7fcf5", "#74c476", "#00441b"]
//	missing: "#eeeeee"
func LoadPalette(path string) (Palette, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Palette{}, eris.Wrapf(err, "render: read palette %s", path)
	}
	var p Palette
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Palette{}, eris.Wrapf(err, "render: parse palette %s", path)
	}
	if p.Missing == "" {
		p.Missing = DefaultMissingFill
	}
	if err := p.Validate(); err != nil {
		return Palette{}, eris.Wrapf(err, "render: palette %s", path)
	}
	return p, nil
}

// Validate checks that the palette has at least two well-formed colours.
func (p Palette) Validate() error {
	if len(p.Colors) < 2 {
		return eris.Errorf("palette needs at least 2 colors, has %d", len(p.Colors))
	}
	for _, c := range append([]string{p.Missing}, p.Colors...) {
		if !hexColor.MatchString(c) {
			return eris.Errorf("invalid color %q (want #rrggbb)", c)
		}
	}
	return nil
}

// Step returns the colour for bucket i of n, spreading the n buckets evenly
// across the ramp.
func (p Palette) Step(i, n int) string {
	if n <= 1 {
		return p.Colors[len(p.Colors)-1]
	}
	t := float64(i) / float64(n-1)
	return p.Colors[int(math.Round(t*float64(len(p.Colors)-1)))]
}

// At interpolates the ramp at t in [0,1].
func (p Palette) At(t float64) string {
	t = math.Max(0, math.Min(1, t))
	pos := t * float64(len(p.Colors)-1)
	lo := int(math.Floor(pos))
	if lo >= len(p.Colors)-1 {
		return p.Colors[len(p.Colors)-1]
	}
	a, b := parseHex(p.Colors[lo]), parseHex(p.Colors[lo+1])
	f := pos - float64(lo)
	var out [3]uint8
	for i := range out {
		out[i] = uint8(math.Round(float64(a[i]) + (float64(b[i])-float64(a[i]))*f))
	}
	return fmt.Sprintf("#%02x%02x%02x", out[0], out[1], out[2])
}

func parseHex(c string) [3]uint8 {
	var rgb [3]uint8
	for i := range rgb {
		v, _ := strconv.ParseUint(c[1+2*i:3+2*i], 16, 8)
		rgb[i] = uint8(v)
	}
	return rgb
}
