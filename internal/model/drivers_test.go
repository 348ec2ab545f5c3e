package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func filledVector(n int) DriverVector {
	v := NewDriverVector(n)
	for i := range n {
		v.Price[i] = 0.1
		v.ServiceFees[i] = 100
		v.TxCount[i] = 10
		v.Validators[i] = 5
	}
	return v
}

func TestDriverVectorValidate(t *testing.T) {
	v := filledVector(4)
	require.NoError(t, v.Validate(4))
	require.NoError(t, v.Validate(3), "longer vectors are accepted")

	assert.ErrorIs(t, v.Validate(5), ErrDataContract)

	v.Price[2] = 0
	assert.ErrorIs(t, v.Validate(4), ErrDataContract)
	require.NoError(t, v.Validate(2), "days beyond the horizon are not read")
}

func TestDriverVectorSample(t *testing.T) {
	v := filledVector(2)
	s, err := v.Sample(1)
	require.NoError(t, err)
	assert.Equal(t, DriverSample{Day: 1, Price: 0.1, ServiceFees: 100, TxCount: 10, Validators: 5}, s)

	_, err = v.Sample(2)
	assert.ErrorIs(t, err, ErrDataContract)
	_, err = v.Sample(-1)
	assert.ErrorIs(t, err, ErrDataContract)
}

func TestDriverVectorTruncate(t *testing.T) {
	v := filledVector(10).Truncate(3)
	assert.Equal(t, 3, v.Len())
}
