package steam

import (
	"math"

	"github.com/san-kum/pwrsim/internal/plant"
	"gonum.org/v1/gonum/floats"
)

const bucketCount = 64

// TableConfig sets the (T, P) grid of the compressed-liquid table.
type TableConfig struct {
	MinTemperature  float64 `yaml:"min_temperature"`
	MaxTemperature  float64 `yaml:"max_temperature"`
	TemperatureStep float64 `yaml:"temperature_step"`
	MinPressure     float64 `yaml:"min_pressure"`
	MaxPressure     float64 `yaml:"max_pressure"`
	PressureStep    float64 `yaml:"pressure_step"`
}

func DefaultTableConfig() TableConfig {
	return TableConfig{
		MinTemperature:  280,
		MaxTemperature:  640,
		TemperatureStep: 5,
		MinPressure:     0.5e6,
		MaxPressure:     25e6,
		PressureStep:    0.5e6,
	}
}

type tablePoint struct {
	x, y float64 // u/1e6, ln v
	T, P float64
}

type triangle [3]int

// Table is a triangulated compressed-liquid point set in (u, ln v) space.
// Lookups are answered by barycentric interpolation of T and P.
type Table struct {
	points    []tablePoint
	triangles []triangle
	buckets   [][]int

	minX, minY float64
	dx, dy     float64
}

// NewTable samples the liquid region of the grid and triangulates it.
// Grid points below the saturation pressure are dropped, which leaves
// gaps along the saturation line.
func NewTable(cfg TableConfig) *Table {
	if !(cfg.TemperatureStep > 0) || !(cfg.PressureStep > 0) {
		return &Table{}
	}
	nT := int(math.Round((cfg.MaxTemperature-cfg.MinTemperature)/cfg.TemperatureStep)) + 1
	nP := int(math.Round((cfg.MaxPressure-cfg.MinPressure)/cfg.PressureStep)) + 1
	if nT < 2 || nP < 2 {
		return &Table{}
	}
	temps := floats.Span(make([]float64, nT), cfg.MinTemperature, cfg.MaxTemperature)
	pressures := floats.Span(make([]float64, nP), cfg.MinPressure, cfg.MaxPressure)

	t := &Table{}
	index := make([][]int, nT)
	for i, T := range temps {
		index[i] = make([]int, nP)
		psat := SaturationPressure(T)
		for j, P := range pressures {
			index[i][j] = -1
			if P < psat {
				continue
			}
			u, rho := CompressedLiquid(T, P)
			index[i][j] = len(t.points)
			t.points = append(t.points, tablePoint{x: u / 1e6, y: math.Log(1 / rho), T: T, P: P})
		}
	}
	for i := 0; i+1 < nT; i++ {
		for j := 0; j+1 < nP; j++ {
			a, b := index[i][j], index[i+1][j]
			c, d := index[i+1][j+1], index[i][j+1]
			if a < 0 || b < 0 || c < 0 || d < 0 {
				continue
			}
			t.triangles = append(t.triangles, triangle{a, b, c}, triangle{a, c, d})
		}
	}
	t.buildIndex()
	return t
}

func (t *Table) buildIndex() {
	if len(t.points) == 0 {
		return
	}
	xs := make([]float64, len(t.points))
	ys := make([]float64, len(t.points))
	for i, p := range t.points {
		xs[i], ys[i] = p.x, p.y
	}
	t.minX, t.minY = floats.Min(xs), floats.Min(ys)
	t.dx = (floats.Max(xs) - t.minX) / bucketCount
	t.dy = (floats.Max(ys) - t.minY) / bucketCount
	if t.dx <= 0 || t.dy <= 0 {
		return
	}

	t.buckets = make([][]int, bucketCount*bucketCount)
	for k, tri := range t.triangles {
		lx, hx := math.Inf(1), math.Inf(-1)
		ly, hy := math.Inf(1), math.Inf(-1)
		for _, idx := range tri {
			p := t.points[idx]
			lx, hx = math.Min(lx, p.x), math.Max(hx, p.x)
			ly, hy = math.Min(ly, p.y), math.Max(hy, p.y)
		}
		i0, j0 := t.cell(lx, ly)
		i1, j1 := t.cell(hx, hy)
		for i := i0; i <= i1; i++ {
			for j := j0; j <= j1; j++ {
				b := i*bucketCount + j
				t.buckets[b] = append(t.buckets[b], k)
			}
		}
	}
}

func (t *Table) cell(x, y float64) (int, int) {
	i := int((x - t.minX) / t.dx)
	j := int((y - t.minY) / t.dy)
	return clampIndex(i), clampIndex(j)
}

func clampIndex(i int) int {
	switch {
	case i < 0:
		return 0
	case i >= bucketCount:
		return bucketCount - 1
	}
	return i
}

// Size returns the number of points and triangles.
func (t *Table) Size() (points, triangles int) {
	return len(t.points), len(t.triangles)
}

// Lookup interpolates T and P at specific energy u (J/kg) and specific
// volume v (m³/kg). ok is false when the query falls outside every
// triangle or the result is not a compressed liquid.
func (t *Table) Lookup(u, v float64) (State, bool) {
	if t == nil || t.buckets == nil || !(v > 0) || !finite(u) {
		return State{}, false
	}
	x, y := u/1e6, math.Log(v)
	if x < t.minX || y < t.minY || x > t.minX+t.dx*bucketCount || y > t.minY+t.dy*bucketCount {
		return State{}, false
	}
	i, j := t.cell(x, y)
	for _, k := range t.buckets[i*bucketCount+j] {
		tri := t.triangles[k]
		a, b, c := t.points[tri[0]], t.points[tri[1]], t.points[tri[2]]
		l1, l2, l3, inside := barycentric(x, y, a, b, c)
		if !inside {
			continue
		}
		T := l1*a.T + l2*b.T + l3*c.T
		P := l1*a.P + l2*b.P + l3*c.P
		if P < SaturationPressure(T)*(1-1e-6) {
			return State{}, false
		}
		return State{Temperature: T, Pressure: P, Phase: plant.PhaseLiquid, Source: SourceTable}, true
	}
	return State{}, false
}

func barycentric(x, y float64, a, b, c tablePoint) (l1, l2, l3 float64, inside bool) {
	det := (b.y-c.y)*(a.x-c.x) + (c.x-b.x)*(a.y-c.y)
	if det == 0 {
		return 0, 0, 0, false
	}
	l1 = ((b.y-c.y)*(x-c.x) + (c.x-b.x)*(y-c.y)) / det
	l2 = ((c.y-a.y)*(x-c.x) + (a.x-c.x)*(y-c.y)) / det
	l3 = 1 - l1 - l2
	const eps = -1e-9
	return l1, l2, l3, l1 >= eps && l2 >= eps && l3 >= eps
}
