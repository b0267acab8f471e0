package elevation

import (
	"math"
	"sort"

	"github.com/paulmach/orb"

	"github.com/FreemapSlovakia/freemap-outdoor-map/internal/feature"
	"github.com/FreemapSlovakia/freemap-outdoor-map/internal/geo"
)

type segment struct {
	a, b orb.Point
}

// Contours extracts iso-lines from the grid at the given elevation
// interval using marching squares, returning contour records with
// LineString geometry in Web Mercator, tagged with their elevation.
// Grid holes simply truncate the affected lines.
func Contours(g *Grid, vp geo.Viewport, interval float64) []feature.Record {
	if interval <= 0 || g.Width < 2 || g.Height < 2 {
		return nil
	}

	toMerc := func(px, py float64) orb.Point {
		return orb.Point{
			vp.Bounds.MinX + (px+0.5)/float64(vp.Width)*vp.Bounds.Width(),
			vp.Bounds.MaxY - (py+0.5)/float64(vp.Height)*vp.Bounds.Height(),
		}
	}

	segs := map[float64][]segment{}

	for y := 0; y < g.Height-1; y++ {
		for x := 0; x < g.Width-1; x++ {
			v00, ok0 := g.At(x, y)
			v10, ok1 := g.At(x+1, y)
			v01, ok2 := g.At(x, y+1)
			v11, ok3 := g.At(x+1, y+1)
			if !ok0 || !ok1 || !ok2 || !ok3 {
				continue
			}

			lo := math.Min(math.Min(v00, v10), math.Min(v01, v11))
			hi := math.Max(math.Max(v00, v10), math.Max(v01, v11))

			for level := math.Ceil(lo/interval) * interval; level <= hi; level += interval {
				cellSegments(x, y, v00, v10, v01, v11, level, toMerc, func(s segment) {
					segs[level] = append(segs[level], s)
				})
			}
		}
	}

	// iterate levels in ascending order so output order, and thus draw
	// order, does not depend on map iteration
	levels := make([]float64, 0, len(segs))
	for level := range segs {
		levels = append(levels, level)
	}
	sort.Float64s(levels)

	var out []feature.Record
	for _, level := range levels {
		for _, line := range chain(segs[level]) {
			out = append(out, feature.Record{
				Geometry:  line,
				Category:  feature.CategoryContour,
				Elevation: level,
			})
		}
	}
	return out
}

// cellSegments emits the marching-squares segments for one cell at one
// level. Corner order: 00 top-left, 10 top-right, 01 bottom-left,
// 11 bottom-right, in grid (pixel) coordinates.
func cellSegments(x, y int, v00, v10, v01, v11, level float64,
	toMerc func(px, py float64) orb.Point, emit func(segment)) {

	idx := 0
	if v00 >= level {
		idx |= 1
	}
	if v10 >= level {
		idx |= 2
	}
	if v11 >= level {
		idx |= 4
	}
	if v01 >= level {
		idx |= 8
	}
	if idx == 0 || idx == 15 {
		return
	}

	fx, fy := float64(x), float64(y)

	interp := func(va, vb float64) float64 {
		if va == vb {
			return 0.5
		}
		return (level - va) / (vb - va)
	}

	top := func() orb.Point { return toMerc(fx+interp(v00, v10), fy) }
	bottom := func() orb.Point { return toMerc(fx+interp(v01, v11), fy+1) }
	left := func() orb.Point { return toMerc(fx, fy+interp(v00, v01)) }
	right := func() orb.Point { return toMerc(fx+1, fy+interp(v10, v11)) }

	switch idx {
	case 1, 14:
		emit(segment{left(), top()})
	case 2, 13:
		emit(segment{top(), right()})
	case 3, 12:
		emit(segment{left(), right()})
	case 4, 11:
		emit(segment{right(), bottom()})
	case 6, 9:
		emit(segment{top(), bottom()})
	case 7, 8:
		emit(segment{left(), bottom()})
	case 5:
		emit(segment{left(), top()})
		emit(segment{right(), bottom()})
	case 10:
		emit(segment{top(), right()})
		emit(segment{left(), bottom()})
	}
}

// chain joins segments sharing endpoints into polylines. Keys are
// quantized so floating point noise does not break adjacency.
func chain(segs []segment) []orb.LineString {
	const q = 1e6

	key := func(p orb.Point) [2]int64 {
		return [2]int64{int64(math.Round(p[0] * q)), int64(math.Round(p[1] * q))}
	}

	type link struct {
		seg  int
		tail bool // whether the key is the segment's b end
	}
	ends := map[[2]int64][]link{}
	for i, s := range segs {
		ends[key(s.a)] = append(ends[key(s.a)], link{i, false})
		ends[key(s.b)] = append(ends[key(s.b)], link{i, true})
	}

	used := make([]bool, len(segs))
	var out []orb.LineString

	for i := range segs {
		if used[i] {
			continue
		}
		used[i] = true
		line := orb.LineString{segs[i].a, segs[i].b}

		// extend forward from the tail
		for {
			k := key(line[len(line)-1])
			found := false
			for _, l := range ends[k] {
				if used[l.seg] {
					continue
				}
				used[l.seg] = true
				if l.tail {
					line = append(line, segs[l.seg].a)
				} else {
					line = append(line, segs[l.seg].b)
				}
				found = true
				break
			}
			if !found {
				break
			}
		}

		// extend backward from the head
		for {
			k := key(line[0])
			found := false
			for _, l := range ends[k] {
				if used[l.seg] {
					continue
				}
				used[l.seg] = true
				if l.tail {
					line = append(orb.LineString{segs[l.seg].a}, line...)
				} else {
					line = append(orb.LineString{segs[l.seg].b}, line...)
				}
				found = true
				break
			}
			if !found {
				break
			}
		}

		out = append(out, line)
	}

	return out
}
