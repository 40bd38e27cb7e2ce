package core

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/kilupskalvis/zcurate/internal/models"
)

// Angle is an angular distance in arcseconds
type Angle float64

// ParseAngle reads "1arcsec", "0.5 arcmin", "2e-4deg" or a bare number (arcsec)
func ParseAngle(s string) (Angle, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	units := []struct {
		suffix string
		scale  float64
	}{
		{"arcsec", 1},
		{"arcmin", 60},
		{"deg", 3600},
		{"rad", 180 / math.Pi * 3600},
		{"\"", 1},
		{"'", 60},
	}
	scale := 1.0
	for _, u := range units {
		if strings.HasSuffix(s, u.suffix) {
			s = strings.TrimSpace(strings.TrimSuffix(s, u.suffix))
			scale = u.scale
			break
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 || math.IsNaN(v) {
		return 0, models.Configf("invalid angle %q", s)
	}
	return Angle(v * scale), nil
}

// Arcsec returns the angle in arcseconds
func (a Angle) Arcsec() float64 { return float64(a) }

func (a Angle) String() string { return strconv.FormatFloat(float64(a), 'g', -1, 64) + "arcsec" }

// SkyPoint is a position on the sky in degrees
type SkyPoint struct {
	RA  float64
	Dec float64
}

// MatchResult is the nearest secondary source for one primary source
type MatchResult struct {
	Index      int     // position in the secondary catalog
	Separation float64 // arcsec
	Masked     bool    // separation exceeds the acceptance radius
}

// MatchSky finds, for every primary position, the nearest secondary position by
// great-circle separation. Several primaries may share one secondary.
func MatchSky(primary, secondary []SkyPoint, maxSep Angle) ([]MatchResult, error) {
	if len(secondary) == 0 {
		return nil, &models.EmptyMatchCatalogError{}
	}

	tree := buildSkyTree(secondary)
	out := make([]MatchResult, len(primary))
	for i, p := range primary {
		q := unitVector(p)
		idx, chord2 := tree.nearest(q)
		sep := chordToArcsec(math.Sqrt(chord2))
		out[i] = MatchResult{
			Index:      idx,
			Separation: sep,
			Masked:     sep > maxSep.Arcsec(),
		}
	}
	return out, nil
}

// Separation returns the great-circle distance between two points in arcsec
func Separation(a, b SkyPoint) float64 {
	va, vb := unitVector(a), unitVector(b)
	dx, dy, dz := va[0]-vb[0], va[1]-vb[1], va[2]-vb[2]
	return chordToArcsec(math.Sqrt(dx*dx + dy*dy + dz*dz))
}

func chordToArcsec(chord float64) float64 {
	if chord > 2 {
		chord = 2
	}
	return 2 * math.Asin(chord/2) * 180 / math.Pi * 3600
}

func unitVector(p SkyPoint) [3]float64 {
	ra := p.RA * math.Pi / 180
	dec := p.Dec * math.Pi / 180
	cd := math.Cos(dec)
	return [3]float64{cd * math.Cos(ra), cd * math.Sin(ra), math.Sin(dec)}
}

// skyTree is a 3-d k-d tree over unit vectors; the nearest neighbour by chord
// length is the nearest neighbour by angle.
type skyTree struct {
	points [][3]float64
	nodes  []skyNode
	root   int
}

type skyNode struct {
	point       int
	axis        int
	left, right int
}

func buildSkyTree(pts []SkyPoint) *skyTree {
	t := &skyTree{points: make([][3]float64, len(pts))}
	idx := make([]int, len(pts))
	for i, p := range pts {
		t.points[i] = unitVector(p)
		idx[i] = i
	}
	t.nodes = make([]skyNode, 0, len(pts))
	t.root = t.build(idx, 0)
	return t
}

func (t *skyTree) build(idx []int, depth int) int {
	if len(idx) == 0 {
		return -1
	}
	axis := depth % 3
	sort.Slice(idx, func(a, b int) bool {
		pa, pb := t.points[idx[a]][axis], t.points[idx[b]][axis]
		if pa == pb {
			return idx[a] < idx[b]
		}
		return pa < pb
	})
	mid := len(idx) / 2
	n := len(t.nodes)
	t.nodes = append(t.nodes, skyNode{point: idx[mid], axis: axis})
	left := t.build(idx[:mid], depth+1)
	right := t.build(idx[mid+1:], depth+1)
	t.nodes[n].left = left
	t.nodes[n].right = right
	return n
}

func (t *skyTree) nearest(q [3]float64) (int, float64) {
	best, bestD := -1, math.Inf(1)
	var walk func(n int)
	walk = func(n int) {
		if n < 0 {
			return
		}
		node := t.nodes[n]
		p := t.points[node.point]
		dx, dy, dz := p[0]-q[0], p[1]-q[1], p[2]-q[2]
		d := dx*dx + dy*dy + dz*dz
		if d < bestD || (d == bestD && node.point < best) {
			best, bestD = node.point, d
		}
		diff := q[node.axis] - p[node.axis]
		near, far := node.left, node.right
		if diff > 0 {
			near, far = node.right, node.left
		}
		walk(near)
		if diff*diff <= bestD {
			walk(far)
		}
	}
	walk(t.root)
	return best, bestD
}

// AttachPhotometry copies matched photometric sources onto the records
func AttachPhotometry(records []models.CatalogRecord, phot []PhotSource, maxSep Angle) error {
	if len(phot) == 0 {
		return &models.EmptyMatchCatalogError{}
	}
	primary := make([]SkyPoint, len(records))
	for i := range records {
		primary[i] = SkyPoint{RA: records[i].RA, Dec: records[i].Dec}
	}
	secondary := make([]SkyPoint, len(phot))
	for i, p := range phot {
		secondary[i] = SkyPoint{RA: p.RA, Dec: p.Dec}
	}

	results, err := MatchSky(primary, secondary, maxSep)
	if err != nil {
		return err
	}
	for i, m := range results {
		if m.Index < 0 || m.Index >= len(phot) {
			return fmt.Errorf("match index %d out of range", m.Index)
		}
		src := phot[m.Index]
		pm := &models.PhotMatch{Separation: m.Separation, Masked: m.Masked}
		if !m.Masked {
			pm.ID, pm.RA, pm.Dec, pm.Z = src.ID, src.RA, src.Dec, src.Z
		}
		records[i].Phot = pm
	}
	return nil
}

// PhotSource is one row of the photometric-redshift catalog
type PhotSource struct {
	ID  string
	RA  float64
	Dec float64
	Z   float64
}
