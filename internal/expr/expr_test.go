package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEval(t *testing.T) {
	tests := []struct {
		name     string
		formula  string
		vars     map[string]float64
		expected float64
	}{
		{
			name:     "literal",
			formula:  "42",
			expected: 42,
		},
		{
			name:     "precedence",
			formula:  "2 + 3 * 4",
			expected: 14,
		},
		{
			name:     "parentheses override precedence",
			formula:  "(2 + 3) * 4",
			expected: 20,
		},
		{
			name:     "unary minus",
			formula:  "-3 + 10",
			expected: 7,
		},
		{
			name:     "variables",
			formula:  "ht * (1 + tr / 100)",
			vars:     map[string]float64{"ht": 100, "tr": 20},
			expected: 120,
		},
		{
			name:     "assignment form",
			formula:  "ttc = ht * (1 + tr / 100)",
			vars:     map[string]float64{"ht": 100, "tr": 20},
			expected: 120,
		},
		{
			name:     "legacy sigils and semicolon",
			formula:  "$ttc = $ht * (1 + $tr / 100);",
			vars:     map[string]float64{"ht": 50, "tr": 10},
			expected: 55,
		},
		{
			name:     "shipping weight formula",
			formula:  "SHP = A + B * Q",
			vars:     map[string]float64{"A": 5, "B": 1.5, "Q": 4},
			expected: 11,
		},
		{
			name:     "division",
			formula:  "ht / 4",
			vars:     map[string]float64{"ht": 10},
			expected: 2.5,
		},
		{
			name:     "left associative subtraction",
			formula:  "10 - 3 - 2",
			expected: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Eval(tt.formula, tt.vars)
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, got, 1e-9)
		})
	}
}

func TestParse_Target(t *testing.T) {
	formula, err := Parse("ttc = ht * 1.2")
	require.NoError(t, err)
	assert.Equal(t, "ttc", formula.Target())

	formula, err = Parse("ht * 1.2")
	require.NoError(t, err)
	assert.Equal(t, "", formula.Target(), "bare expressions have no target")
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		formula string
	}{
		{"empty", ""},
		{"trailing operator", "2 +"},
		{"unbalanced paren", "(2 + 3"},
		{"garbage character", "2 ! 3"},
		{"trailing garbage", "2 + 3 )"},
		{"double dot number", "1.2.3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.formula)
			require.Error(t, err)
			var perr *ParseError
			assert.ErrorAs(t, err, &perr)
		})
	}
}

func TestEval_RuntimeErrors(t *testing.T) {
	t.Run("unknown variable", func(t *testing.T) {
		_, err := Eval("ht * tr", map[string]float64{"ht": 10})
		require.Error(t, err)
		var eerr *EvalError
		require.ErrorAs(t, err, &eerr)
		assert.Contains(t, eerr.Msg, "tr")
	})

	t.Run("division by zero", func(t *testing.T) {
		_, err := Eval("1 / q", map[string]float64{"q": 0})
		require.Error(t, err)
		var eerr *EvalError
		require.ErrorAs(t, err, &eerr)
		assert.Contains(t, eerr.Msg, "division by zero")
	})
}

func TestFormula_Reuse(t *testing.T) {
	formula, err := Parse("ht * (1 + tr / 100)")
	require.NoError(t, err)

	// A compiled formula evaluates repeatedly over different bindings.
	got, err := formula.Eval(map[string]float64{"ht": 100, "tr": 20})
	require.NoError(t, err)
	assert.InDelta(t, 120, got, 1e-9)

	got, err = formula.Eval(map[string]float64{"ht": 200, "tr": 5.5})
	require.NoError(t, err)
	assert.InDelta(t, 211, got, 1e-9)
}
