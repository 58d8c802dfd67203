package model

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorClasses(t *testing.T) {
	assert := assert.New(t)

	ce := ConfigErrorf("thin %d does not divide %d", 3, 100)
	assert.Contains(ce.Error(), "Configuration error")
	assert.Contains(ce.Error(), "thin 3")

	de := DataErrorf("unknown region %s", "99999")
	assert.Contains(de.Error(), "Data error")

	ne := NumericalErrorf("tau2.int", 42, "drew %v", -1.0)
	assert.Contains(ne.Error(), "tau2.int")
	assert.Contains(ne.Error(), "42")

	var asNum *NumericalError
	assert.ErrorAs(ne, &asNum)
	assert.Equal("tau2.int", asNum.Param)
	assert.Equal(42, asNum.Iteration)
}

// The classes must stay distinguishable through wrapping.
func TestErrorWrapping(t *testing.T) {
	assert := assert.New(t)

	wrapped := errors.Wrap(DataErrorf("no usable values"), "Assembling frame")

	var de *DataError
	assert.ErrorAs(wrapped, &de)

	var ce *ConfigurationError
	assert.False(errors.As(wrapped, &ce))
}
