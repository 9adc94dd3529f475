package hls

import "github.com/samber/lo"

// SelectVariant picks the rendition closest to the requested vertical resolution.
// Ties go to the higher bandwidth. A resolution of zero or less selects the highest bandwidth.
func (p *Playlist) SelectVariant(resolution int) (Variant, bool) {
	if len(p.Variants) == 0 {
		return Variant{}, false
	}

	if resolution <= 0 {
		return lo.MaxBy(p.Variants, func(a, b Variant) bool {
			return a.Bandwidth > b.Bandwidth
		}), true
	}

	distance := func(v Variant) int {
		d := v.Height - resolution
		if d < 0 {
			return -d
		}
		return d
	}

	return lo.MinBy(p.Variants, func(a, b Variant) bool {
		da, db := distance(a), distance(b)
		if da != db {
			return da < db
		}
		return a.Bandwidth > b.Bandwidth
	}), true
}
