package ir

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_Scalars(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want string
	}{
		{"null value", Null{}, "null"},
		{"nil", nil, "null"},
		{"string", String("BRCA1"), `"BRCA1"`},
		{"int", Int(-7), "-7"},
		{"bool", Bool(true), "true"},
		{"float", Float(0.05), "0.05"},
		{"float integral", Float(3.0), "3"},
		{"float scientific", Float(1.5e-8), "1.5e-08"},
		{"go float64", 2.5, "2.5"},
		{"go int", 12, "12"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := MarshalCanonical(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, string(got))
		})
	}
}

func TestMarshalCanonical_NaNInfForbidden(t *testing.T) {
	_, err := MarshalCanonical(Float(math.NaN()))
	assert.Error(t, err)
	_, err = MarshalCanonical(math.Inf(1))
	assert.Error(t, err)
}

func TestMarshalCanonical_NoHTMLEscaping(t *testing.T) {
	got, err := MarshalCanonical(String("a < b & c > d"))
	require.NoError(t, err)
	assert.Equal(t, `"a < b & c > d"`, string(got))
}

func TestMarshalCanonical_ObjectKeyOrder(t *testing.T) {
	obj := Object{
		"symbol": String("TP53"),
		"logFC":  Float(-1.2),
		"adj_p":  Float(0.003),
	}
	got, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"adj_p":0.003,"logFC":-1.2,"symbol":"TP53"}`, string(got))
}

func TestMarshalCanonical_NestedFromGoMaps(t *testing.T) {
	got, err := MarshalCanonical(map[string]any{
		"rows": []any{
			map[string]any{"gene": "SOX2", "count": 15},
			map[string]any{"gene": "NANOG", "count": nil},
		},
		"n": 2,
	})
	require.NoError(t, err)
	assert.Equal(t,
		`{"n":2,"rows":[{"count":15,"gene":"SOX2"},{"count":null,"gene":"NANOG"}]}`,
		string(got))
}

func TestMarshalCanonical_Deterministic(t *testing.T) {
	obj := Object{"a": Float(1.1), "b": Array{Int(1), Null{}, String("x")}}
	first, err := MarshalCanonical(obj)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := MarshalCanonical(obj)
		require.NoError(t, err)
		assert.Equal(t, string(first), string(again))
	}
}
