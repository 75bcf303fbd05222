package elasticsearch_test

import (
	"context"
	"net/http"
	"testing"

	store "github.com/goto/jes/internal/store/elasticsearch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchResponse = `{
	"took": 3,
	"timed_out": false,
	"hits": {
		"total": {"value": 1, "relation": "eq"},
		"max_score": 1.0,
		"hits": [
			{"_index": "orders", "_id": "1", "_score": 1.0, "_source": {"status": "paid"}}
		]
	}
}`

func TestBuilderXSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("should execute a match query and return the hits", func(t *testing.T) {
		fe := newFakeEngine(t, respondJSON(http.StatusOK, searchResponse))
		b := newBuilder(t, fe.client(t))

		res, err := b.XMatch(ctx, []string{"status"}, store.Criteria{"status": "paid", "item_id": 1234})
		require.NoError(t, err)
		require.NotNil(t, res.Hits)
		assert.EqualValues(t, 1, res.Hits.TotalHits.Value)
		require.Len(t, res.Hits.Hits, 1)
		assert.Equal(t, "1", res.Hits.Hits[0].Id)
		assert.JSONEq(t, `{"status": "paid"}`, string(res.Hits.Hits[0].Source))

		req := fe.lastRequest(t)
		assert.Equal(t, "/orders/_search", req.Path)
		assert.Len(t, mustClauses(t, decodeJSON(t, req.Body)), 2)
	})

	t.Run("should execute a regexp query", func(t *testing.T) {
		fe := newFakeEngine(t, respondJSON(http.StatusOK, searchResponse))
		b := newBuilder(t, fe.client(t))

		_, err := b.XRegexp(ctx, nil, store.Criteria{"customer": "a.*"})
		require.NoError(t, err)

		clauses := mustClauses(t, decodeJSON(t, fe.lastRequest(t).Body))
		require.Len(t, clauses, 1)
		assert.Contains(t, clauses[0], "regexp")
	})

	t.Run("should execute a base search", func(t *testing.T) {
		fe := newFakeEngine(t, respondJSON(http.StatusOK, searchResponse))
		b := newBuilder(t, fe.client(t))

		_, err := b.XSearch(ctx)
		require.NoError(t, err)

		body := decodeJSON(t, fe.lastRequest(t).Body)
		assert.EqualValues(t, 10, body["size"])
	})

	t.Run("should not call the engine for invalid criteria", func(t *testing.T) {
		fe := newFakeEngine(t, respondJSON(http.StatusOK, searchResponse))
		b := newBuilder(t, fe.client(t))

		_, err := b.XMatch(ctx, nil, nil)
		assert.ErrorAs(t, err, new(store.ValidationError))
		_, err = b.XRegexp(ctx, nil, store.Criteria{"item_id": 1})
		assert.ErrorAs(t, err, new(store.ValidationError))
		assert.Zero(t, fe.requestCount())
	})

	t.Run("should surface engine failures unchanged", func(t *testing.T) {
		fe := newFakeEngine(t, respondJSON(http.StatusBadRequest, `{
			"error": {"type": "search_phase_execution_exception", "reason": "all shards failed"},
			"status": 400
		}`))
		b := newBuilder(t, fe.client(t))

		_, err := b.XMatch(ctx, nil, store.Criteria{"status": "paid"})

		var eerr store.EngineError
		require.ErrorAs(t, err, &eerr)
		assert.Equal(t, "Search", eerr.Op)
		assert.Equal(t, "orders", eerr.Index)
		assert.Equal(t, http.StatusBadRequest, eerr.Status)
		assert.Equal(t, "search_phase_execution_exception", eerr.ESCode)
		assert.EqualError(t, eerr.Err, "all shards failed")
	})
}

func TestBuilderXUpdate(t *testing.T) {
	ctx := context.Background()
	const updateResponse = `{
		"took": 12,
		"timed_out": false,
		"total": 2,
		"updated": 2,
		"deleted": 0,
		"batches": 1,
		"version_conflicts": 0,
		"noops": 0,
		"failures": []
	}`

	t.Run("should execute the update and report what changed", func(t *testing.T) {
		fe := newFakeEngine(t, respondJSON(http.StatusOK, updateResponse))
		b := newBuilder(t, fe.client(t))

		res, err := b.XUpdate(ctx, "status=0", store.Criteria{"item_id": 1234})
		require.NoError(t, err)
		assert.EqualValues(t, 2, res.Total)
		assert.EqualValues(t, 2, res.Updated)

		req := fe.lastRequest(t)
		assert.Equal(t, http.MethodPost, req.Method)
		assert.Equal(t, "/orders/_update_by_query", req.Path)
		assert.NotContains(t, req.Query, "conflicts")

		body := decodeJSON(t, req.Body)
		assert.Len(t, mustClauses(t, body), 1)
		script := body["script"].(map[string]interface{})
		assert.Equal(t, "ctx._source[params.field0] = params.value", script["source"])
	})

	t.Run("should pass the conflicts mode along", func(t *testing.T) {
		fe := newFakeEngine(t, respondJSON(http.StatusOK, updateResponse))
		b := newBuilder(t, fe.client(t))

		req, err := b.UpdateQuery("status=0", store.Criteria{"item_id": 1234})
		require.NoError(t, err)
		_, err = req.Conflicts("proceed").Do(ctx)
		require.NoError(t, err)

		assert.Contains(t, fe.lastRequest(t).Query, "conflicts=proceed")
	})

	t.Run("should report a script the engine rejects", func(t *testing.T) {
		fe := newFakeEngine(t, respondJSON(http.StatusBadRequest, `{
			"error": {"type": "script_exception", "reason": "compile error"},
			"status": 400
		}`))
		b := newBuilder(t, fe.client(t))

		_, err := b.XUpdate(ctx, "status=ctx._source.missing(", store.Criteria{"item_id": 1234})

		var eerr store.EngineError
		require.ErrorAs(t, err, &eerr)
		assert.Equal(t, "UpdateByQuery", eerr.Op)
		assert.Equal(t, "script_exception", eerr.ESCode)
		assert.Contains(t, err.Error(), "compile error")
	})

	t.Run("should not call the engine for an invalid expression", func(t *testing.T) {
		fe := newFakeEngine(t, respondJSON(http.StatusOK, updateResponse))
		b := newBuilder(t, fe.client(t))

		_, err := b.XUpdate(ctx, "status", store.Criteria{"item_id": 1234})
		assert.ErrorAs(t, err, new(store.ValidationError))
		assert.Zero(t, fe.requestCount())
	})
}

func TestEngineErrorBodies(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		Description string
		Status      int
		Body        string
		ESCode      string
		Reason      string
	}{
		{
			Description: "should read a plain error string",
			Status:      http.StatusMethodNotAllowed,
			Body:        `{"error": "Incorrect HTTP method for uri", "status": 405}`,
			Reason:      "Incorrect HTTP method for uri",
		},
		{
			Description: "should keep a body that is not JSON",
			Status:      http.StatusBadGateway,
			Body:        `upstream unavailable`,
			Reason:      "raw response = upstream unavailable",
		},
		{
			Description: "should fall back to the status line for an empty body",
			Status:      http.StatusInternalServerError,
			Reason:      "500 Internal Server Error",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.Description, func(t *testing.T) {
			fe := newFakeEngine(t, respondJSON(tc.Status, tc.Body))
			b := newBuilder(t, fe.client(t))

			_, err := b.XSearch(ctx)

			var eerr store.EngineError
			require.ErrorAs(t, err, &eerr)
			assert.Equal(t, tc.Status, eerr.Status)
			assert.Equal(t, tc.ESCode, eerr.ESCode)
			assert.EqualError(t, eerr.Err, tc.Reason)
		})
	}
}
