package aoi

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

type Point struct{ X, Y float64 }

// Interval is a [Start, End) span in ms during which a dynamic AOI is active.
type Interval struct{ Start, End int64 }

// AOI is a polygonal area of interest. An AOI without intervals is always active.
type AOI struct {
	Name      string
	Polygon   []Point
	Intervals []Interval
}

// Read parses an .aoi file. Each AOI line is "name<TAB>x,y<TAB>x,y...". A line
// "#<TAB>start,end<TAB>start,end..." following an AOI restricts it to those
// time intervals.
func Read(fs afero.Fs, path string) ([]AOI, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []AOI
	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if fields[0] == "#" {
			if len(out) == 0 {
				return nil, fmt.Errorf("%s:%d: interval line before any AOI", path, lineNo)
			}
			for _, fld := range fields[1:] {
				a, b, err := pair(fld)
				if err != nil {
					return nil, fmt.Errorf("%s:%d: %w", path, lineNo, err)
				}
				last := &out[len(out)-1]
				last.Intervals = append(last.Intervals, Interval{Start: int64(a), End: int64(b)})
			}
			continue
		}
		a := AOI{Name: fields[0]}
		for _, fld := range fields[1:] {
			if fld == "" {
				continue
			}
			x, y, err := pair(fld)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: %w", path, lineNo, err)
			}
			a.Polygon = append(a.Polygon, Point{X: x, Y: y})
		}
		if len(a.Polygon) < 3 {
			return nil, fmt.Errorf("%s:%d: aoi %q needs at least 3 vertices", path, lineNo, a.Name)
		}
		out = append(out, a)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func pair(s string) (float64, float64, error) {
	xs, ys, ok := strings.Cut(strings.TrimSpace(s), ",")
	if !ok {
		return 0, 0, fmt.Errorf("malformed pair %q", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return 0, 0, err
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

// Contains reports whether (x, y) lies inside the polygon (even-odd rule).
func (a AOI) Contains(x, y float64) bool {
	in := false
	n := len(a.Polygon)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		pi, pj := a.Polygon[i], a.Polygon[j]
		if (pi.Y > y) != (pj.Y > y) && x < (pj.X-pi.X)*(y-pi.Y)/(pj.Y-pi.Y)+pi.X {
			in = !in
		}
	}
	return in
}

func (a AOI) ActiveAt(ts int64) bool {
	if len(a.Intervals) == 0 {
		return true
	}
	for _, iv := range a.Intervals {
		if ts >= iv.Start && ts < iv.End {
			return true
		}
	}
	return false
}
