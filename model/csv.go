package model

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ReadRecordsCSV parses county-year rows from CSV. The header row must name
// a fips and a year column; every other column is read as a float64 value,
// with an empty field meaning missing.
func ReadRecordsCSV(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, errors.Wrap(err, "Could not read records header")
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	fipsCol, yearCol := -1, -1
	for i, h := range header {
		switch strings.ToLower(h) {
		case "fips":
			fipsCol = i
		case "year":
			yearCol = i
		}
	}
	if fipsCol < 0 || yearCol < 0 {
		return nil, DataErrorf("Records header needs fips and year columns, have %v", header)
	}

	var recs []Record
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "Could not read records line %d", line)
		}

		year, err := strconv.Atoi(strings.TrimSpace(row[yearCol]))
		if err != nil {
			return nil, DataErrorf("Records line %d has unusable year %q", line, row[yearCol])
		}

		rec := Record{
			FIPS:   strings.TrimSpace(row[fipsCol]),
			Year:   year,
			Values: make(map[string]float64),
		}

		for i, field := range row {
			if i == fipsCol || i == yearCol {
				continue
			}
			field = strings.TrimSpace(field)
			if len(field) < 1 {
				continue // missing value
			}
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, DataErrorf("Records line %d column %s has unusable value %q", line, header[i], field)
			}
			rec.Values[header[i]] = v
		}

		recs = append(recs, rec)
	}

	return recs, nil
}

// ReadRecordsCSVFile reads county-year records from the named file.
func ReadRecordsCSVFile(filename string) ([]Record, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "Could not READ records from %s", filename)
	}
	defer f.Close()

	return ReadRecordsCSV(f)
}

// ReadEdgesCSV parses undirected adjacency pairs from a two-column CSV with
// a header row.
func ReadEdgesCSV(r io.Reader) ([][2]string, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	if _, err := cr.Read(); err != nil {
		return nil, errors.Wrap(err, "Could not read edges header")
	}

	var edges [][2]string
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "Could not read edges line %d", line)
		}
		if len(row) < 2 {
			return nil, DataErrorf("Edges line %d needs two columns", line)
		}
		edges = append(edges, [2]string{strings.TrimSpace(row[0]), strings.TrimSpace(row[1])})
	}

	return edges, nil
}

// ReadEdgesCSVFile reads adjacency pairs from the named file.
func ReadEdgesCSVFile(filename string) ([][2]string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "Could not READ edges from %s", filename)
	}
	defer f.Close()

	return ReadEdgesCSV(f)
}
