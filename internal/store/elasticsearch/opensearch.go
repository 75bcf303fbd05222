package elasticsearch

import (
	"context"
	"io"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
)

// osExecutor runs requests through the OpenSearch client. OpenSearch kept
// the 7.10 REST API, so bodies built for Elasticsearch are sent unchanged.
type osExecutor struct {
	client *opensearch.Client
}

func osResponse(res *opensearchapi.Response, err error) (*response, error) {
	if err != nil {
		return nil, err
	}
	return &response{StatusCode: res.StatusCode, Body: res.Body}, nil
}

func (e osExecutor) name() string { return EngineOpenSearch }

func (e osExecutor) minServerMajor() uint64 { return 1 }

func (e osExecutor) info(ctx context.Context) (*response, error) {
	return osResponse(e.client.Info(e.client.Info.WithContext(ctx)))
}

func (e osExecutor) search(ctx context.Context, index string, body io.Reader) (*response, error) {
	search := e.client.Search
	return osResponse(search(
		search.WithIndex(index),
		search.WithBody(body),
		search.WithContext(ctx),
	))
}

func (e osExecutor) updateByQuery(ctx context.Context, index string, body io.Reader, conflicts string) (*response, error) {
	ubq := e.client.UpdateByQuery
	opts := []func(*opensearchapi.UpdateByQueryRequest){
		ubq.WithBody(body),
		ubq.WithContext(ctx),
	}
	if conflicts != "" {
		opts = append(opts, ubq.WithConflicts(conflicts))
	}
	return osResponse(ubq([]string{index}, opts...))
}

func (e osExecutor) count(ctx context.Context, index string, body io.Reader) (*response, error) {
	count := e.client.Count
	return osResponse(count(
		count.WithIndex(index),
		count.WithBody(body),
		count.WithContext(ctx),
	))
}

func (e osExecutor) getMapping(ctx context.Context, index string) (*response, error) {
	getMapping := e.client.Indices.GetMapping
	return osResponse(getMapping(
		getMapping.WithIndex(index),
		getMapping.WithContext(ctx),
	))
}

func (e osExecutor) catIndices(ctx context.Context) (*response, error) {
	catIndices := e.client.Cat.Indices
	return osResponse(catIndices(
		catIndices.WithFormat("json"),
		catIndices.WithContext(ctx),
	))
}

func (e osExecutor) refresh(ctx context.Context, index string) (*response, error) {
	refresh := e.client.Indices.Refresh
	return osResponse(refresh(
		refresh.WithIndex(index),
		refresh.WithContext(ctx),
	))
}

func (e osExecutor) indexExists(ctx context.Context, index string) (*response, error) {
	exists := e.client.Indices.Exists
	return osResponse(exists([]string{index}, exists.WithContext(ctx)))
}
