package elasticsearch

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
)

// Engines a Client can talk to.
const (
	EngineElasticsearch = "elasticsearch"
	EngineOpenSearch    = "opensearch"
)

// response is the part of an engine response the client reads. Body may be
// nil for HEAD requests.
type response struct {
	StatusCode int
	Body       io.ReadCloser
}

func (r *response) IsError() bool {
	return r.StatusCode > 299
}

func (r *response) Status() string {
	return fmt.Sprintf("%d %s", r.StatusCode, http.StatusText(r.StatusCode))
}

// executor runs the engine APIs the builder relies on. Bodies are already
// encoded; an executor only maps them onto its client's request functions.
type executor interface {
	name() string
	minServerMajor() uint64
	info(ctx context.Context) (*response, error)
	search(ctx context.Context, index string, body io.Reader) (*response, error)
	updateByQuery(ctx context.Context, index string, body io.Reader, conflicts string) (*response, error)
	count(ctx context.Context, index string, body io.Reader) (*response, error)
	getMapping(ctx context.Context, index string) (*response, error)
	catIndices(ctx context.Context) (*response, error)
	refresh(ctx context.Context, index string) (*response, error)
	indexExists(ctx context.Context, index string) (*response, error)
}

type esExecutor struct {
	client *elasticsearch.Client
}

func esResponse(res *esapi.Response, err error) (*response, error) {
	if err != nil {
		return nil, err
	}
	return &response{StatusCode: res.StatusCode, Body: res.Body}, nil
}

func (e esExecutor) name() string { return EngineElasticsearch }

func (e esExecutor) minServerMajor() uint64 { return 7 }

func (e esExecutor) info(ctx context.Context) (*response, error) {
	return esResponse(e.client.Info(e.client.Info.WithContext(ctx)))
}

func (e esExecutor) search(ctx context.Context, index string, body io.Reader) (*response, error) {
	search := e.client.Search
	return esResponse(search(
		search.WithIndex(index),
		search.WithBody(body),
		search.WithContext(ctx),
	))
}

func (e esExecutor) updateByQuery(ctx context.Context, index string, body io.Reader, conflicts string) (*response, error) {
	ubq := e.client.UpdateByQuery
	opts := []func(*esapi.UpdateByQueryRequest){
		ubq.WithBody(body),
		ubq.WithContext(ctx),
	}
	if conflicts != "" {
		opts = append(opts, ubq.WithConflicts(conflicts))
	}
	return esResponse(ubq([]string{index}, opts...))
}

func (e esExecutor) count(ctx context.Context, index string, body io.Reader) (*response, error) {
	count := e.client.Count
	return esResponse(count(
		count.WithIndex(index),
		count.WithBody(body),
		count.WithContext(ctx),
	))
}

func (e esExecutor) getMapping(ctx context.Context, index string) (*response, error) {
	getMapping := e.client.Indices.GetMapping
	return esResponse(getMapping(
		getMapping.WithIndex(index),
		getMapping.WithContext(ctx),
	))
}

func (e esExecutor) catIndices(ctx context.Context) (*response, error) {
	catIndices := e.client.Cat.Indices
	return esResponse(catIndices(
		catIndices.WithFormat("json"),
		catIndices.WithContext(ctx),
	))
}

func (e esExecutor) refresh(ctx context.Context, index string) (*response, error) {
	refresh := e.client.Indices.Refresh
	return esResponse(refresh(
		refresh.WithIndex(index),
		refresh.WithContext(ctx),
	))
}

func (e esExecutor) indexExists(ctx context.Context, index string) (*response, error) {
	exists := e.client.Indices.Exists
	return esResponse(exists([]string{index}, exists.WithContext(ctx)))
}
