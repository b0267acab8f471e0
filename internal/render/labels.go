package render

import (
	"image"
	"image/color"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// labelFace is the single face used for map lettering
var labelFace = basicfont.Face7x13

// Label is a placement candidate collected while drawing layers.
// Candidates are tried in slice order; order therefore encodes
// priority (peaks arrive most-isolated-first).
type Label struct {
	Text   string
	At     Point // anchor, text is centered above this point
	Color  color.NRGBA
	Halo   bool
}

// labeler performs deterministic greedy label placement: a candidate
// whose box overlaps an already placed box is rejected.
type labeler struct {
	placed []image.Rectangle
}

func (l *labeler) tryPlace(r image.Rectangle) bool {
	for _, p := range l.placed {
		if p.Overlaps(r) {
			return false
		}
	}
	l.placed = append(l.placed, r)
	return true
}

// draw renders all candidates that fit, in order
func (l *labeler) draw(c *Canvas, labels []Label) {
	for _, lb := range labels {
		if lb.Text == "" {
			continue
		}

		w := font.MeasureString(labelFace, lb.Text).Ceil()
		h := labelFace.Metrics().Height.Ceil()

		x := int(lb.At.X) - w/2
		y := int(lb.At.Y) - 5 // sit above the marker

		box := image.Rect(x-1, y-h, x+w+1, y+2).Inset(-1)
		if !box.In(c.img.Bounds()) {
			continue
		}
		if !l.tryPlace(box) {
			continue
		}

		if lb.Halo {
			drawString(c.img, x, y, lb.Text, color.NRGBA{0xff, 0xff, 0xff, 0xd0},
				[][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}...)
		}
		drawString(c.img, x, y, lb.Text, lb.Color)
	}
}

// drawString draws text at the baseline position, once per offset
// (offsets implement the halo), or once at the position itself
func drawString(dst *image.NRGBA, x, y int, s string, col color.NRGBA, offsets ...[2]int) {
	if len(offsets) == 0 {
		offsets = [][2]int{{0, 0}}
	}
	for _, off := range offsets {
		d := font.Drawer{
			Dst:  dst,
			Src:  image.NewUniform(col),
			Face: labelFace,
			Dot:  fixed.P(x+off[0], y+off[1]),
		}
		d.DrawString(s)
	}
}
