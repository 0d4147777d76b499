package main

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestReadObservations(t *testing.T) {
	csv := "a,b,c\n1,0,1\n0, 0,1\n1,1,1\n"

	data, labels, err := readObservations(strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, labels)
	assert.Equal(t, [][]uint8{{1, 0, 1}, {0, 0, 1}, {1, 1, 1}}, data)
}

func TestReadObservations_Errors(t *testing.T) {
	for name, csv := range map[string]string{
		"header only": "a,b\n",
		"non binary":  "a,b\n1,2\n",
		"ragged":      "a,b\n1,0\n1\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, _, err := readObservations(strings.NewReader(csv))
			assert.Error(t, err)
		})
	}
}

func TestFilterPrevalence(t *testing.T) {
	data := [][]uint8{
		{1, 0, 1, 1},
		{0, 0, 1, 1},
		{1, 0, 0, 1},
		{0, 0, 1, 1},
	}
	labels := []string{"half", "never", "mostly", "always"}

	got, kept := filterPrevalence(data, labels, 0.01, 0.99)

	assert.Equal(t, []string{"half", "mostly"}, kept)
	assert.Equal(t, [][]uint8{{1, 1}, {0, 1}, {1, 0}, {0, 1}}, got)
}

func TestStackFile_RoundTripKeepsNaN(t *testing.T) {
	stack := mat.NewDense(2, 3, []float64{
		0.5, -0.25, 0,
		math.NaN(), 0.75, 1,
	})

	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(newStackFile(stack, []string{"x", "y", "z"})))
	assert.Contains(t, buf.String(), "null")

	got, labels, err := readStack(&buf)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y", "z"}, labels)

	r, c := got.Dims()
	require.Equal(t, 2, r)
	require.Equal(t, 3, c)
	assert.True(t, math.IsNaN(got.At(1, 0)))
	assert.Equal(t, -0.25, got.At(0, 1))
	assert.Equal(t, 1.0, got.At(1, 2))
}

func TestStackFile_RejectsRaggedRows(t *testing.T) {
	_, _, err := readStack(strings.NewReader(`{"labels":["a","b"],"rows":[[0.1],[0.2,0.3]]}`))
	assert.Error(t, err)
}
