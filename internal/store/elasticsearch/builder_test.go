package elasticsearch_test

import (
	"context"
	"net/http"
	"testing"

	store "github.com/goto/jes/internal/store/elasticsearch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBuilder(t *testing.T) {
	cli := offlineClient(t)

	testCases := []struct {
		Description string
		Client      *store.Client
		Index       string
		Opts        []store.BuilderOption
		Reason      string
	}{
		{
			Description: "should reject a nil client",
			Index:       "orders",
			Reason:      "client is required",
		},
		{
			Description: "should reject an empty index",
			Client:      cli,
			Index:       "  ",
			Reason:      "index name is required",
		},
		{
			Description: "should reject a non positive page size",
			Client:      cli,
			Index:       "orders",
			Opts:        []store.BuilderOption{store.WithPageSize(0)},
			Reason:      "page size must be positive",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.Description, func(t *testing.T) {
			b, err := store.NewBuilder(tc.Client, tc.Index, tc.Opts...)
			assert.Nil(t, b)

			var verr store.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, "NewBuilder", verr.Op)
			assert.Contains(t, verr.Reason, tc.Reason)
		})
	}

	t.Run("should keep the index it was built for", func(t *testing.T) {
		b := newBuilder(t, cli)
		assert.Equal(t, "orders", b.Index())
	})
}

func TestBuilderBaseSearch(t *testing.T) {
	b := newBuilder(t, offlineClient(t))

	t.Run("should cap the page size and return every field without selection", func(t *testing.T) {
		body, err := b.BaseSearch().Body()
		require.NoError(t, err)

		src := decodeJSON(t, body)
		assert.EqualValues(t, 10, src["size"])
		assert.NotContains(t, src, "_source")
		assert.NotContains(t, src, "query")
	})

	t.Run("should project the selected fields", func(t *testing.T) {
		body, err := b.BaseSearch("status", "customer.name").Body()
		require.NoError(t, err)

		src := decodeJSON(t, body)
		assert.Equal(t, map[string]interface{}{
			"includes": []interface{}{"status", "customer.name"},
		}, src["_source"])
	})

	t.Run("should honour the configured page size", func(t *testing.T) {
		b := newBuilder(t, offlineClient(t), store.WithPageSize(25))
		body, err := b.BaseSearch().Body()
		require.NoError(t, err)
		assert.EqualValues(t, 25, decodeJSON(t, body)["size"])
	})

	t.Run("should let a request override the page size", func(t *testing.T) {
		body, err := b.BaseSearch().Size(3).Body()
		require.NoError(t, err)
		assert.EqualValues(t, 3, decodeJSON(t, body)["size"])
	})

	t.Run("should not share state between requests", func(t *testing.T) {
		first := b.BaseSearch("status").Size(1)
		second := b.BaseSearch()

		body, err := second.Body()
		require.NoError(t, err)
		src := decodeJSON(t, body)
		assert.EqualValues(t, 10, src["size"])
		assert.NotContains(t, src, "_source")

		body, err = first.Body()
		require.NoError(t, err)
		assert.EqualValues(t, 1, decodeJSON(t, body)["size"])
	})
}

func TestBuilderMatchQuery(t *testing.T) {
	b := newBuilder(t, offlineClient(t))

	t.Run("should require every criteria entry to match on its own field", func(t *testing.T) {
		req, err := b.MatchQuery([]string{"status"}, store.Criteria{
			"status":  "paid",
			"item_id": 1234,
		})
		require.NoError(t, err)
		assert.Equal(t, "orders", req.Index())

		body, err := req.Body()
		require.NoError(t, err)
		src := decodeJSON(t, body)

		assert.EqualValues(t, 10, src["size"])
		assert.Equal(t, map[string]interface{}{
			"includes": []interface{}{"status"},
		}, src["_source"])

		clauses := mustClauses(t, src)
		assert.Equal(t, []interface{}{
			map[string]interface{}{
				"match": map[string]interface{}{
					"item_id": map[string]interface{}{"query": float64(1234), "operator": "and"},
				},
			},
			map[string]interface{}{
				"match": map[string]interface{}{
					"status": map[string]interface{}{"query": "paid", "operator": "and"},
				},
			},
		}, clauses)
	})

	t.Run("should never bind a criteria value to a placeholder field", func(t *testing.T) {
		req, err := b.MatchQuery(nil, store.Criteria{"status": "paid"})
		require.NoError(t, err)

		body, err := req.Body()
		require.NoError(t, err)

		clauses := mustClauses(t, decodeJSON(t, body))
		require.Len(t, clauses, 1)
		match := clauses[0].(map[string]interface{})["match"].(map[string]interface{})
		assert.Contains(t, match, "status")
		assert.NotContains(t, match, "k")
	})

	t.Run("should reject empty criteria by default", func(t *testing.T) {
		for _, criteria := range []store.Criteria{nil, {}} {
			req, err := b.MatchQuery(nil, criteria)
			assert.Nil(t, req)

			var verr store.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, "MatchQuery", verr.Op)
			assert.Equal(t, "criteria cannot be empty", verr.Reason)
		}
	})

	t.Run("should reject an empty field name", func(t *testing.T) {
		_, err := b.MatchQuery(nil, store.Criteria{"": "paid"})
		assert.ErrorAs(t, err, new(store.ValidationError))
	})

	t.Run("should reject null values before building a body", func(t *testing.T) {
		req, err := b.MatchQuery(nil, store.Criteria{"item_id": nil, "status": "paid"})
		assert.Nil(t, req)

		var verr store.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, `field "item_id": value cannot be null`, verr.Reason)

		_, err = b.UpdateQuery("status=0", store.Criteria{"item_id": nil})
		assert.ErrorAs(t, err, new(store.ValidationError))
	})
}

func TestBuilderRegexpQuery(t *testing.T) {
	b := newBuilder(t, offlineClient(t))

	t.Run("should send values as patterns", func(t *testing.T) {
		req, err := b.RegexpQuery(nil, store.Criteria{
			"customer": "a.*",
			"sku":      "[0-9]{4}",
		})
		require.NoError(t, err)

		body, err := req.Body()
		require.NoError(t, err)

		assert.Equal(t, []interface{}{
			map[string]interface{}{
				"regexp": map[string]interface{}{
					"customer": map[string]interface{}{"value": "a.*"},
				},
			},
			map[string]interface{}{
				"regexp": map[string]interface{}{
					"sku": map[string]interface{}{"value": "[0-9]{4}"},
				},
			},
		}, mustClauses(t, decodeJSON(t, body)))
	})

	t.Run("should reject non string patterns", func(t *testing.T) {
		_, err := b.RegexpQuery(nil, store.Criteria{"item_id": 1234})

		var verr store.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "RegexpQuery", verr.Op)
		assert.Contains(t, verr.Reason, "pattern must be a string")
	})

	t.Run("should reject empty criteria by default", func(t *testing.T) {
		_, err := b.RegexpQuery(nil, store.Criteria{})
		assert.ErrorAs(t, err, new(store.ValidationError))
	})
}

func TestBuilderUpdateQuery(t *testing.T) {
	b := newBuilder(t, offlineClient(t))

	t.Run("should select documents the way MatchQuery does", func(t *testing.T) {
		req, err := b.UpdateQuery("status=0", store.Criteria{"item_id": 1234})
		require.NoError(t, err)
		assert.Equal(t, "orders", req.Index())

		body, err := req.Body()
		require.NoError(t, err)
		src := decodeJSON(t, body)

		assert.Equal(t, []interface{}{
			map[string]interface{}{
				"match": map[string]interface{}{
					"item_id": map[string]interface{}{"query": float64(1234), "operator": "and"},
				},
			},
		}, mustClauses(t, src))

		assert.Equal(t, map[string]interface{}{
			"source": "ctx._source[params.field0] = params.value",
			"lang":   "painless",
			"params": map[string]interface{}{
				"field0": "status",
				"value":  float64(0),
			},
		}, src["script"])
	})

	t.Run("should reject malformed expressions", func(t *testing.T) {
		for _, expr := range []string{"", "status", "=0", "status=", "a..b=1"} {
			_, err := b.UpdateQuery(expr, store.Criteria{"item_id": 1234})

			var verr store.ValidationError
			require.ErrorAs(t, err, &verr, expr)
			assert.Equal(t, "UpdateQuery", verr.Op)
		}
	})

	t.Run("should reject empty criteria by default", func(t *testing.T) {
		req, err := b.UpdateQuery("status=0", nil)
		assert.Nil(t, req)
		assert.ErrorAs(t, err, new(store.ValidationError))
	})
}

func TestBuilderAllowEmptyCriteria(t *testing.T) {
	b := newBuilder(t, offlineClient(t), store.WithAllowEmptyCriteria(true))
	matchAll := map[string]interface{}{"match_all": map[string]interface{}{}}

	t.Run("MatchQuery", func(t *testing.T) {
		req, err := b.MatchQuery(nil, nil)
		require.NoError(t, err)
		body, err := req.Body()
		require.NoError(t, err)
		assert.Equal(t, matchAll, decodeJSON(t, body)["query"])
	})

	t.Run("RegexpQuery", func(t *testing.T) {
		req, err := b.RegexpQuery(nil, store.Criteria{})
		require.NoError(t, err)
		body, err := req.Body()
		require.NoError(t, err)
		assert.Equal(t, matchAll, decodeJSON(t, body)["query"])
	})

	t.Run("UpdateQuery", func(t *testing.T) {
		req, err := b.UpdateQuery("status=0", nil)
		require.NoError(t, err)
		body, err := req.Body()
		require.NoError(t, err)
		assert.Equal(t, matchAll, decodeJSON(t, body)["query"])
	})
}

func TestBuilderAllowedFields(t *testing.T) {
	b := newBuilder(t, offlineClient(t), store.WithAllowedFields("status", "item_id"))

	t.Run("should accept allowed criteria fields", func(t *testing.T) {
		_, err := b.MatchQuery(nil, store.Criteria{"status": "paid", "item_id": 1})
		assert.NoError(t, err)
	})

	t.Run("should reject other criteria fields", func(t *testing.T) {
		_, err := b.MatchQuery(nil, store.Criteria{"status": "paid", "owner": "bob"})

		var verr store.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Reason, `"owner"`)
	})

	t.Run("should reject an update of another field", func(t *testing.T) {
		_, err := b.UpdateQuery("owner=\"bob\"", store.Criteria{"item_id": 1})
		assert.ErrorAs(t, err, new(store.ValidationError))
	})

	t.Run("should not restrict selections", func(t *testing.T) {
		_, err := b.MatchQuery([]string{"owner"}, store.Criteria{"status": "paid"})
		assert.NoError(t, err)
	})
}

func TestBuilderCount(t *testing.T) {
	ctx := context.Background()

	t.Run("should count documents matching the criteria", func(t *testing.T) {
		fe := newFakeEngine(t, respondJSON(http.StatusOK, `{"count": 42, "_shards": {"total": 1, "successful": 1}}`))
		b := newBuilder(t, fe.client(t))

		n, err := b.Count(ctx, store.Criteria{"status": "paid"})
		require.NoError(t, err)
		assert.EqualValues(t, 42, n)

		req := fe.lastRequest(t)
		assert.Equal(t, "/orders/_count", req.Path)
		assert.Len(t, mustClauses(t, decodeJSON(t, req.Body)), 1)
	})

	t.Run("should reject empty criteria without calling the engine", func(t *testing.T) {
		fe := newFakeEngine(t, respondJSON(http.StatusOK, `{"count": 1}`))
		b := newBuilder(t, fe.client(t))

		_, err := b.Count(ctx, nil)
		assert.ErrorAs(t, err, new(store.ValidationError))
		_, err = b.Count(ctx, store.Criteria{"item_id": nil})
		assert.ErrorAs(t, err, new(store.ValidationError))
		assert.Zero(t, fe.requestCount())
	})

	t.Run("should count every document when empty criteria are allowed", func(t *testing.T) {
		fe := newFakeEngine(t, respondJSON(http.StatusOK, `{"count": 7}`))
		b := newBuilder(t, fe.client(t), store.WithAllowEmptyCriteria(true))

		n, err := b.Count(ctx, nil)
		require.NoError(t, err)
		assert.EqualValues(t, 7, n)
		assert.Equal(t, map[string]interface{}{
			"query": map[string]interface{}{"match_all": map[string]interface{}{}},
		}, decodeJSON(t, fe.lastRequest(t).Body))
	})
}
