package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/olivere/elastic/v7"
)

// SearchRequest is an unexecuted search against a single index.
type SearchRequest struct {
	cli    *Client
	index  string
	source *elastic.SearchSource
}

func (r *SearchRequest) Index() string {
	return r.index
}

// Size overrides the builder's default page size for this request.
func (r *SearchRequest) Size(size int) *SearchRequest {
	r.source.Size(size)
	return r
}

// Source returns the request body as a JSON-serialisable value.
func (r *SearchRequest) Source() (interface{}, error) {
	return r.source.Source()
}

func (r *SearchRequest) Body() ([]byte, error) {
	src, err := r.Source()
	if err != nil {
		return nil, fmt.Errorf("build search source: %w", err)
	}
	return json.Marshal(src)
}

// Do executes the search and returns the raw engine response.
func (r *SearchRequest) Do(ctx context.Context) (_ *elastic.SearchResult, err error) {
	const op = "Search"
	defer func(start time.Time) {
		r.cli.instrumentOp(instrumentParams{op: op, index: r.index, start: start, err: err})
	}(time.Now())

	body, err := r.Body()
	if err != nil {
		return nil, err
	}
	r.cli.logger.Debug("search request", "index", r.index, "body", string(body))

	res, err := r.cli.engine.search(ctx, r.index, bytes.NewReader(body))
	if err != nil {
		return nil, EngineError{Op: op, Index: r.index, Err: err}
	}
	defer drainBody(res)
	if res.IsError() {
		return nil, engineError(op, r.index, res)
	}

	var result elastic.SearchResult
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return &result, nil
}

// UpdateByQueryRequest is an unexecuted update-by-query against a single
// index: every document matching query is modified by script.
type UpdateByQueryRequest struct {
	cli       *Client
	index     string
	query     elastic.Query
	script    *elastic.Script
	conflicts string
}

func (r *UpdateByQueryRequest) Index() string {
	return r.index
}

// Conflicts sets what to do on version conflicts, "abort" (the engine
// default) or "proceed".
func (r *UpdateByQueryRequest) Conflicts(mode string) *UpdateByQueryRequest {
	r.conflicts = mode
	return r
}

func (r *UpdateByQueryRequest) Source() (interface{}, error) {
	query, err := r.query.Source()
	if err != nil {
		return nil, fmt.Errorf("build query source: %w", err)
	}
	script, err := r.script.Source()
	if err != nil {
		return nil, fmt.Errorf("build script source: %w", err)
	}
	return map[string]interface{}{
		"query":  query,
		"script": script,
	}, nil
}

func (r *UpdateByQueryRequest) Body() ([]byte, error) {
	src, err := r.Source()
	if err != nil {
		return nil, err
	}
	return json.Marshal(src)
}

// Do executes the update and returns the engine's summary of it. A script
// the engine cannot compile surfaces here as an EngineError.
func (r *UpdateByQueryRequest) Do(ctx context.Context) (_ *elastic.BulkIndexByScrollResponse, err error) {
	const op = "UpdateByQuery"
	defer func(start time.Time) {
		r.cli.instrumentOp(instrumentParams{op: op, index: r.index, start: start, err: err})
	}(time.Now())

	body, err := r.Body()
	if err != nil {
		return nil, err
	}
	r.cli.logger.Debug("update by query request", "index", r.index, "body", string(body))

	res, err := r.cli.engine.updateByQuery(ctx, r.index, bytes.NewReader(body), r.conflicts)
	if err != nil {
		return nil, EngineError{Op: op, Index: r.index, Err: err}
	}
	defer drainBody(res)
	if res.IsError() {
		return nil, engineError(op, r.index, res)
	}

	var result elastic.BulkIndexByScrollResponse
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode update by query response: %w", err)
	}
	return &result, nil
}
