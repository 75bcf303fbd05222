package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/olivere/elastic/v7"
)

const defaultPageSize = 10

// Builder constructs search and update requests against one index. Every
// query kind comes in two forms: the plain method returns an unexecuted
// request, and the X-prefixed one builds the same request and executes it.
//
// A Builder keeps no state between calls; several builders may share one
// Client across goroutines.
type Builder struct {
	cli                *Client
	index              string
	pageSize           int
	allowEmptyCriteria bool
	allowedFields      map[string]bool
}

func NewBuilder(cli *Client, index string, opts ...BuilderOption) (*Builder, error) {
	b := &Builder{
		cli:      cli,
		index:    index,
		pageSize: defaultPageSize,
	}
	for _, opt := range opts {
		opt(b)
	}

	if cli == nil {
		return nil, ValidationError{Op: "NewBuilder", Reason: "client is required"}
	}
	if strings.TrimSpace(index) == "" {
		return nil, ValidationError{Op: "NewBuilder", Reason: "index name is required"}
	}
	if b.pageSize <= 0 {
		return nil, ValidationError{Op: "NewBuilder", Reason: fmt.Sprintf("page size must be positive, got %d", b.pageSize)}
	}
	return b, nil
}

func (b *Builder) Index() string {
	return b.index
}

// BaseSearch returns a search capped at the default page size that returns
// only the selected fields, or every field when selection is empty.
func (b *Builder) BaseSearch(selection ...string) *SearchRequest {
	source := elastic.NewSearchSource().Size(b.pageSize)
	if len(selection) > 0 {
		fields := make([]string, len(selection))
		copy(fields, selection)
		source.FetchSourceContext(elastic.NewFetchSourceContext(true).Include(fields...))
	}
	return &SearchRequest{
		cli:    b.cli,
		index:  b.index,
		source: source,
	}
}

// MatchQuery narrows BaseSearch to documents where every criteria field
// matches its value.
func (b *Builder) MatchQuery(selection []string, criteria Criteria) (*SearchRequest, error) {
	q, err := b.buildQuery("MatchQuery", criteria, matchClause)
	if err != nil {
		return nil, err
	}
	req := b.BaseSearch(selection...)
	req.source.Query(q)
	return req, nil
}

// RegexpQuery is MatchQuery with every value read as a regular expression
// the whole field value must match.
func (b *Builder) RegexpQuery(selection []string, criteria Criteria) (*SearchRequest, error) {
	q, err := b.buildQuery("RegexpQuery", criteria, regexpClause)
	if err != nil {
		return nil, err
	}
	req := b.BaseSearch(selection...)
	req.source.Query(q)
	return req, nil
}

// UpdateQuery returns an update-by-query for the documents MatchQuery would
// select with the same criteria, applying scriptExpression
// ("<field>=<value-or-expression>") to each.
//
// The expression part is not escaped: it is compiled by the engine as
// painless source unless it is a plain JSON literal. Never pass untrusted
// input as scriptExpression.
func (b *Builder) UpdateQuery(scriptExpression string, criteria Criteria) (*UpdateByQueryRequest, error) {
	const op = "UpdateQuery"

	assignment, err := ParseAssignment(scriptExpression)
	if err != nil {
		return nil, ValidationError{Op: op, Reason: err.Error()}
	}
	if err := b.checkField(op, assignment.Field); err != nil {
		return nil, err
	}

	q, err := b.buildQuery(op, criteria, matchClause)
	if err != nil {
		return nil, err
	}

	return &UpdateByQueryRequest{
		cli:    b.cli,
		index:  b.index,
		query:  q,
		script: assignment.Script(),
	}, nil
}

func (b *Builder) XSearch(ctx context.Context, selection ...string) (*elastic.SearchResult, error) {
	return b.BaseSearch(selection...).Do(ctx)
}

func (b *Builder) XMatch(ctx context.Context, selection []string, criteria Criteria) (*elastic.SearchResult, error) {
	req, err := b.MatchQuery(selection, criteria)
	if err != nil {
		return nil, err
	}
	return req.Do(ctx)
}

func (b *Builder) XRegexp(ctx context.Context, selection []string, criteria Criteria) (*elastic.SearchResult, error) {
	req, err := b.RegexpQuery(selection, criteria)
	if err != nil {
		return nil, err
	}
	return req.Do(ctx)
}

func (b *Builder) XUpdate(ctx context.Context, scriptExpression string, criteria Criteria) (*elastic.BulkIndexByScrollResponse, error) {
	req, err := b.UpdateQuery(scriptExpression, criteria)
	if err != nil {
		return nil, err
	}
	return req.Do(ctx)
}

// Count returns how many documents match criteria, under the same rules
// as MatchQuery.
func (b *Builder) Count(ctx context.Context, criteria Criteria) (_ int64, err error) {
	const op = "Count"

	q, err := b.buildQuery(op, criteria, matchClause)
	if err != nil {
		return 0, err
	}

	defer func(start time.Time) {
		b.cli.instrumentOp(instrumentParams{op: op, index: b.index, start: start, err: err})
	}(time.Now())

	src, err := q.Source()
	if err != nil {
		return 0, fmt.Errorf("build query source: %w", err)
	}
	body, err := json.Marshal(map[string]interface{}{"query": src})
	if err != nil {
		return 0, fmt.Errorf("encode count body: %w", err)
	}

	res, err := b.cli.engine.count(ctx, b.index, bytes.NewReader(body))
	if err != nil {
		return 0, EngineError{Op: op, Index: b.index, Err: err}
	}
	defer drainBody(res)
	if res.IsError() {
		return 0, engineError(op, b.index, res)
	}

	var response struct {
		Count int64 `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&response); err != nil {
		return 0, fmt.Errorf("decode count response: %w", err)
	}
	return response.Count, nil
}
