package model

// Covariate kind constant strings - the kind selects the missing-value rule
const (
	// CovMean imputes a missing value from the contemporaneous mean of the
	// same covariate across the county's state group.
	CovMean = "mean"
	// CovMedian imputes from the state-group median instead of the mean.
	CovMedian = "median"
	// CovFlag marks a 0/1 indicator column that defaults to 0 when absent.
	CovFlag = "flag"
)

// A Covariate names one design column and the rule used to fill its missing
// values.
type Covariate struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`
}

// Check returns an error if the covariate entry is unusable.
func (c *Covariate) Check() error {
	if len(c.Name) < 1 {
		return ConfigErrorf("Covariate has an empty name")
	}
	if c.Kind != CovMean && c.Kind != CovMedian && c.Kind != CovFlag {
		return ConfigErrorf("Covariate %s has unknown kind %q", c.Name, c.Kind)
	}
	return nil
}

// A Record is one raw county-year row. Values holds covariates and the
// response keyed by column name; a missing value is an absent key.
type Record struct {
	FIPS   string
	Year   int
	Values map[string]float64
}

// State returns the two-digit state prefix of the record's county key.
func (r *Record) State() string {
	if len(r.FIPS) < 2 {
		return r.FIPS
	}
	return r.FIPS[:2]
}
