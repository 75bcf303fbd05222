package elasticsearch_test

import (
	"encoding/json"
	"testing"

	store "github.com/goto/jes/internal/store/elasticsearch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAssignment(t *testing.T) {
	t.Run("should split on the first equals sign", func(t *testing.T) {
		testCases := []struct {
			Input    string
			Expected store.Assignment
		}{
			{Input: "status=0", Expected: store.Assignment{Field: "status", Expr: "0"}},
			{Input: " status = 0 ", Expected: store.Assignment{Field: "status", Expr: "0"}},
			{Input: "a=b==c", Expected: store.Assignment{Field: "a", Expr: "b==c"}},
			{Input: "meta.owner=\"bob\"", Expected: store.Assignment{Field: "meta.owner", Expr: "\"bob\""}},
		}
		for _, tc := range testCases {
			got, err := store.ParseAssignment(tc.Input)
			require.NoError(t, err, tc.Input)
			assert.Equal(t, tc.Expected, got, tc.Input)
		}
	})

	t.Run("should reject malformed expressions", func(t *testing.T) {
		for _, input := range []string{"", "status", "=0", " =0", "status=", "status=  ", ".status=1", "a..b=1", "a.=1"} {
			_, err := store.ParseAssignment(input)
			assert.Error(t, err, input)
		}
	})
}

func TestAssignmentScript(t *testing.T) {
	scriptSource := func(t *testing.T, expr string) map[string]interface{} {
		t.Helper()

		a, err := store.ParseAssignment(expr)
		require.NoError(t, err)
		src, err := a.Script().Source()
		require.NoError(t, err)
		data, err := json.Marshal(src)
		require.NoError(t, err)
		return decodeJSON(t, data)
	}

	testCases := []struct {
		Description string
		Expr        string
		Source      string
		Params      map[string]interface{}
	}{
		{
			Description: "should bind a number as a parameter",
			Expr:        "status=0",
			Source:      "ctx._source[params.field0] = params.value",
			Params:      map[string]interface{}{"field0": "status", "value": float64(0)},
		},
		{
			Description: "should bind a string as a parameter",
			Expr:        `status="shipped"`,
			Source:      "ctx._source[params.field0] = params.value",
			Params:      map[string]interface{}{"field0": "status", "value": "shipped"},
		},
		{
			Description: "should bind null as a parameter",
			Expr:        "archived=null",
			Source:      "ctx._source[params.field0] = params.value",
			Params:      map[string]interface{}{"field0": "archived", "value": nil},
		},
		{
			Description: "should bind a boolean as a parameter",
			Expr:        "archived=true",
			Source:      "ctx._source[params.field0] = params.value",
			Params:      map[string]interface{}{"field0": "archived", "value": true},
		},
		{
			Description: "should bind every segment of a nested path",
			Expr:        "customer.address.city=\"Jakarta\"",
			Source:      "ctx._source[params.field0][params.field1][params.field2] = params.value",
			Params: map[string]interface{}{
				"field0": "customer",
				"field1": "address",
				"field2": "city",
				"value":  "Jakarta",
			},
		},
		{
			Description: "should insert a non literal value as an expression",
			Expr:        "count=ctx._source.count + 1",
			Source:      "ctx._source[params.field0] = ctx._source.count + 1",
			Params:      map[string]interface{}{"field0": "count"},
		},
		{
			Description: "should treat JSON containers as expressions",
			Expr:        "tags=[1, 2]",
			Source:      "ctx._source[params.field0] = [1, 2]",
			Params:      map[string]interface{}{"field0": "tags"},
		},
		{
			Description: "should keep a hostile field name out of the script source",
			Expr:        "x'] ; throw new Exception(); //=1",
			Source:      "ctx._source[params.field0] = params.value",
			Params:      map[string]interface{}{"field0": "x'] ; throw new Exception(); //", "value": float64(1)},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.Description, func(t *testing.T) {
			src := scriptSource(t, tc.Expr)
			assert.Equal(t, "painless", src["lang"])
			assert.Equal(t, tc.Source, src["source"])
			assert.Equal(t, tc.Params, src["params"])
		})
	}
}

func TestParseLiteral(t *testing.T) {
	t.Run("should return JSON scalars", func(t *testing.T) {
		testCases := []struct {
			Input    string
			Expected interface{}
		}{
			{Input: "0", Expected: json.Number("0")},
			{Input: " -1.5e3 ", Expected: json.Number("-1.5e3")},
			{Input: `"paid"`, Expected: "paid"},
			{Input: "true", Expected: true},
			{Input: "null", Expected: nil},
		}
		for _, tc := range testCases {
			v, ok := store.ParseLiteral(tc.Input)
			assert.True(t, ok, tc.Input)
			assert.Equal(t, tc.Expected, v, tc.Input)
		}
	})

	t.Run("should refuse anything else", func(t *testing.T) {
		for _, input := range []string{"", "paid", "[1]", `{"a":1}`, "1 2", "ctx._source.n + 1"} {
			_, ok := store.ParseLiteral(input)
			assert.False(t, ok, input)
		}
	})
}
