package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadRecordsCSV(t *testing.T) {
	assert := assert.New(t)

	src := strings.Join([]string{
		"fips,year,deaths,poverty,metro",
		"01001,2010,10.5,1.25,1",
		"01003,2010,,2.5,",
		"01001,2011,11,3.75,1",
	}, "\n")

	recs, err := ReadRecordsCSV(strings.NewReader(src))
	assert.NoError(err)
	assert.Len(recs, 3)

	assert.Equal("01001", recs[0].FIPS)
	assert.Equal(2010, recs[0].Year)
	assert.Equal(10.5, recs[0].Values["deaths"])
	assert.Equal(1.25, recs[0].Values["poverty"])

	// Empty fields are missing, not zero
	_, ok := recs[1].Values["deaths"]
	assert.False(ok)
	_, ok = recs[1].Values["metro"]
	assert.False(ok)
	assert.Equal(2.5, recs[1].Values["poverty"])
}

func TestReadRecordsCSVBad(t *testing.T) {
	assert := assert.New(t)

	cases := []struct {
		name string
		src  string
	}{
		{"no-fips", "county,year,deaths\n01001,2010,1"},
		{"no-year", "fips,deaths\n01001,1"},
		{"bad-year", "fips,year,deaths\n01001,twenty,1"},
		{"bad-value", "fips,year,deaths\n01001,2010,lots"},
		{"ragged", "fips,year,deaths\n01001,2010"},
	}

	for _, c := range cases {
		recs, err := ReadRecordsCSV(strings.NewReader(c.src))
		assert.Nil(recs, c.name)
		assert.Error(err, c.name)
	}
}

func TestReadEdgesCSV(t *testing.T) {
	assert := assert.New(t)

	src := "from,to\n01001,01003\n01003,01005\n"
	edges, err := ReadEdgesCSV(strings.NewReader(src))
	assert.NoError(err)

	assert.Equal([][2]string{
		{"01001", "01003"},
		{"01003", "01005"},
	}, edges)

	edges, err = ReadEdgesCSV(strings.NewReader("from,to\n"))
	assert.NoError(err)
	assert.Empty(edges)
}
