package model

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Assembly configures how raw records become a model frame.
type Assembly struct {
	Response      string      `yaml:"response"`
	Covariates    []Covariate `yaml:"covariates"`
	Years         []int       `yaml:"years"`          // study window; empty means every year seen
	HoldoutYears  []int       `yaml:"holdout_years"`  // responses in these years are masked
	ExcludeStates []string    `yaml:"exclude_states"` // two-digit state prefixes dropped entirely
}

// Check returns an error if the assembly configuration is unusable.
func (a *Assembly) Check() error {
	if len(a.Response) < 1 {
		return ConfigErrorf("No response column configured")
	}

	seen := map[string]bool{a.Response: true}
	for i := range a.Covariates {
		c := &a.Covariates[i]
		if err := c.Check(); err != nil {
			return err
		}
		if seen[c.Name] {
			return ConfigErrorf("Column %s is configured more than once", c.Name)
		}
		seen[c.Name] = true
	}

	for i := 1; i < len(a.Years); i++ {
		if a.Years[i] <= a.Years[i-1] {
			return ConfigErrorf("Study years must be strictly ascending, have %d after %d", a.Years[i], a.Years[i-1])
		}
	}

	for _, s := range a.ExcludeStates {
		if len(s) != 2 {
			return ConfigErrorf("Excluded state code %q is not a two-digit prefix", s)
		}
	}

	return nil
}

// An Obs is one (region, year) cell of the study grid. X always starts with
// the intercept column. Y only enters the likelihood when Observed is true;
// HeldOut marks responses that existed but were masked for validation.
type Obs struct {
	Region   int // index into Frame.Regions
	Time     int // index into Frame.Years
	X        []float64
	Y        float64
	Observed bool
	HeldOut  bool
}

// Frame is the assembled model input: the full region-by-year grid with
// imputed covariates and masked responses. Obs is region-major, so cell
// (r, t) sits at r*len(Years)+t.
type Frame struct {
	Regions []string  // ordered region keys; the index is the region id everywhere
	Years   []int     // ordered distinct years in the window
	Trend   []float64 // centered unit-span trend value per year index
	Columns []string  // design column names, intercept first
	Obs     []Obs
}

// InterceptName is the label of the automatic leading design column.
const InterceptName = "intercept"

// Check returns an error if the frame shapes are inconsistent.
func (f *Frame) Check() error {
	k := len(f.Regions)
	nt := len(f.Years)

	if k < 1 {
		return DataErrorf("Frame has no regions")
	}
	if nt < 2 {
		return DataErrorf("Frame needs at least 2 years for the trend, has %d", nt)
	}
	if len(f.Trend) != nt {
		return DataErrorf("Frame has %d trend values for %d years", len(f.Trend), nt)
	}
	if len(f.Columns) < 1 || f.Columns[0] != InterceptName {
		return DataErrorf("Frame design columns must start with the intercept")
	}
	if len(f.Obs) != k*nt {
		return DataErrorf("Frame has %d cells for a %d x %d grid", len(f.Obs), k, nt)
	}

	for i := range f.Obs {
		o := &f.Obs[i]
		if o.Region < 0 || o.Region >= k || o.Time < 0 || o.Time >= nt {
			return DataErrorf("Cell %d indexes region %d time %d outside the grid", i, o.Region, o.Time)
		}
		if len(o.X) != len(f.Columns) {
			return DataErrorf("Cell %d has %d design values for %d columns", i, len(o.X), len(f.Columns))
		}
	}

	return nil
}

// At returns the cell for region r at year index t.
func (f *Frame) At(r, t int) *Obs {
	return &f.Obs[r*len(f.Years)+t]
}

// ObservedCount returns the number of cells whose response enters the
// likelihood.
func (f *Frame) ObservedCount() int {
	n := 0
	for i := range f.Obs {
		if f.Obs[i].Observed {
			n++
		}
	}
	return n
}

type cellKey struct {
	fips string
	year int
}

type groupKey struct {
	year  int
	state string
	cov   string
}

// median returns the middle order statistic of sorted, averaging the central
// pair when the length is even.
func median(sorted []float64) float64 {
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2.0
	}
	return sorted[mid]
}

// NewFrame assembles raw records into the full region-by-year design grid.
// Covariate gaps fill in per the covariate kind: flags default to 0, the
// rest impute from the same column's contemporaneous state-group statistic.
// An entire state group with no usable value is a DataError.
func NewFrame(records []Record, asm *Assembly) (*Frame, error) {
	if err := asm.Check(); err != nil {
		return nil, err
	}

	excluded := make(map[string]bool, len(asm.ExcludeStates))
	for _, s := range asm.ExcludeStates {
		excluded[s] = true
	}

	window := make(map[int]bool, len(asm.Years))
	for _, y := range asm.Years {
		window[y] = true
	}

	// Filter and index the records. kept preserves input order so that the
	// group statistics below are reproducible run to run.
	byCell := make(map[cellKey]int, len(records))
	kept := make([]int, 0, len(records))
	regionSet := make(map[string]bool)
	yearSet := make(map[int]bool)

	for idx := range records {
		r := &records[idx]
		if len(r.FIPS) != 5 {
			return nil, DataErrorf("Record has malformed region key %q (want 5-digit FIPS)", r.FIPS)
		}
		if excluded[r.State()] {
			continue
		}
		if len(asm.Years) > 0 && !window[r.Year] {
			continue
		}

		key := cellKey{fips: r.FIPS, year: r.Year}
		if _, dup := byCell[key]; dup {
			return nil, DataErrorf("Duplicate record for region %s year %d", r.FIPS, r.Year)
		}
		byCell[key] = idx
		kept = append(kept, idx)
		regionSet[r.FIPS] = true
		yearSet[r.Year] = true
	}

	if len(kept) < 1 {
		return nil, DataErrorf("No records remain after filtering")
	}

	regions := make([]string, 0, len(regionSet))
	for k := range regionSet {
		regions = append(regions, k)
	}
	sort.Strings(regions)

	years := asm.Years
	if len(years) < 1 {
		years = make([]int, 0, len(yearSet))
		for y := range yearSet {
			years = append(years, y)
		}
		sort.Ints(years)
	}
	if len(years) < 2 {
		return nil, DataErrorf("Need at least 2 distinct years for the trend, have %d", len(years))
	}

	// Holdout years must name years the frame actually has, or the mask
	// silently does nothing
	inWindow := make(map[int]bool, len(years))
	for _, y := range years {
		inWindow[y] = true
	}
	holdout := make(map[int]bool, len(asm.HoldoutYears))
	for _, y := range asm.HoldoutYears {
		if !inWindow[y] {
			return nil, ConfigErrorf("Holdout year %d is not among the study years %v", y, years)
		}
		holdout[y] = true
	}

	// Centered unit-span trend
	fy := make([]float64, len(years))
	for i, y := range years {
		fy[i] = float64(y)
	}
	meanYear := stat.Mean(fy, nil)
	span := fy[len(fy)-1] - fy[0]
	trend := make([]float64, len(years))
	for i := range fy {
		trend[i] = (fy[i] - meanYear) / span
	}

	// Group values for imputation, collected in record order
	groups := make(map[groupKey][]float64)
	for _, idx := range kept {
		r := &records[idx]
		for i := range asm.Covariates {
			c := &asm.Covariates[i]
			if c.Kind == CovFlag {
				continue
			}
			if v, ok := r.Values[c.Name]; ok {
				gk := groupKey{year: r.Year, state: r.State(), cov: c.Name}
				groups[gk] = append(groups[gk], v)
			}
		}
	}

	stats := make(map[groupKey]float64, len(groups))
	groupStat := func(year int, state string, c *Covariate) (float64, bool) {
		gk := groupKey{year: year, state: state, cov: c.Name}
		if v, ok := stats[gk]; ok {
			return v, true
		}
		vals := groups[gk]
		if len(vals) < 1 {
			return 0.0, false
		}
		var v float64
		if c.Kind == CovMedian {
			sorted := append([]float64(nil), vals...)
			sort.Float64s(sorted)
			v = median(sorted)
		} else {
			v = stat.Mean(vals, nil)
		}
		stats[gk] = v
		return v, true
	}

	columns := make([]string, 0, 1+len(asm.Covariates))
	columns = append(columns, InterceptName)
	for i := range asm.Covariates {
		columns = append(columns, asm.Covariates[i].Name)
	}

	obs := make([]Obs, 0, len(regions)*len(years))
	for ri, fips := range regions {
		state := fips[:2]
		for yi, year := range years {
			var rec *Record
			if idx, ok := byCell[cellKey{fips: fips, year: year}]; ok {
				rec = &records[idx]
			}

			x := make([]float64, len(columns))
			x[0] = 1.0
			for ci := range asm.Covariates {
				c := &asm.Covariates[ci]

				var v float64
				var have bool
				if rec != nil {
					v, have = rec.Values[c.Name]
				}
				if !have {
					if c.Kind == CovFlag {
						v = 0.0
					} else {
						v, have = groupStat(year, state, c)
						if !have {
							return nil, DataErrorf("No %s values in state %s year %d to impute from", c.Name, state, year)
						}
					}
				}
				x[1+ci] = v
			}

			o := Obs{Region: ri, Time: yi, X: x, Y: math.NaN()}
			if rec != nil {
				if y, ok := rec.Values[asm.Response]; ok {
					o.Y = y
					if holdout[year] {
						o.HeldOut = true
					} else {
						o.Observed = true
					}
				}
			}
			obs = append(obs, o)
		}
	}

	f := &Frame{
		Regions: regions,
		Years:   years,
		Trend:   trend,
		Columns: columns,
		Obs:     obs,
	}

	if err := f.Check(); err != nil {
		return nil, err
	}

	return f, nil
}
