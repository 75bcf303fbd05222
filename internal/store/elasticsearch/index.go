package elasticsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type mappingNode struct {
	Type       string                 `json:"type"`
	Properties map[string]mappingNode `json:"properties"`
	Fields     map[string]mappingNode `json:"fields"`
}

// DescribeMappings returns the type declared for every field of the index,
// keyed by dotted field path. Multi-fields appear as "<field>.<name>".
func (b *Builder) DescribeMappings(ctx context.Context) (_ map[string]string, err error) {
	const op = "GetMapping"
	defer func(start time.Time) {
		b.cli.instrumentOp(instrumentParams{op: op, index: b.index, start: start, err: err})
	}(time.Now())

	res, err := b.cli.engine.getMapping(ctx, b.index)
	if err != nil {
		return nil, EngineError{Op: op, Index: b.index, Err: err}
	}
	defer drainBody(res)
	if res.StatusCode == http.StatusNotFound {
		return nil, NotFoundError{Index: b.index}
	}
	if res.IsError() {
		return nil, engineError(op, b.index, res)
	}

	var response map[string]struct {
		Mappings mappingNode `json:"mappings"`
	}
	if err := json.NewDecoder(res.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode mapping response: %w", err)
	}

	fields := make(map[string]string)
	for _, idx := range response {
		flattenMappings("", idx.Mappings.Properties, fields)
	}
	return fields, nil
}

func flattenMappings(prefix string, props map[string]mappingNode, out map[string]string) {
	for name, node := range props {
		path := name
		if prefix != "" {
			path = prefix + "." + name
		}

		typ := node.Type
		if typ == "" {
			typ = "object"
		}
		out[path] = typ

		for sub, f := range node.Fields {
			out[path+"."+sub] = f.Type
		}
		flattenMappings(path, node.Properties, out)
	}
}

// ListIndexes returns statistics for every index visible to the client.
func (b *Builder) ListIndexes(ctx context.Context) (_ []IndexStats, err error) {
	const op = "CatIndices"
	defer func(start time.Time) {
		b.cli.instrumentOp(instrumentParams{op: op, start: start, err: err})
	}(time.Now())

	res, err := b.cli.engine.catIndices(ctx)
	if err != nil {
		return nil, EngineError{Op: op, Err: err}
	}
	defer drainBody(res)
	if res.IsError() {
		return nil, engineError(op, "", res)
	}

	var stats []IndexStats
	if err := json.NewDecoder(res.Body).Decode(&stats); err != nil {
		return nil, fmt.Errorf("decode cat indices response: %w", err)
	}
	return stats, nil
}

// Refresh makes recent writes to the index visible to searches.
func (b *Builder) Refresh(ctx context.Context) (err error) {
	const op = "Refresh"
	defer func(start time.Time) {
		b.cli.instrumentOp(instrumentParams{op: op, index: b.index, start: start, err: err})
	}(time.Now())

	res, err := b.cli.engine.refresh(ctx, b.index)
	if err != nil {
		return EngineError{Op: op, Index: b.index, Err: err}
	}
	defer drainBody(res)
	if res.StatusCode == http.StatusNotFound {
		return NotFoundError{Index: b.index}
	}
	if res.IsError() {
		return engineError(op, b.index, res)
	}
	return nil
}

func (b *Builder) IndexExists(ctx context.Context) (_ bool, err error) {
	const op = "IndexExists"
	defer func(start time.Time) {
		b.cli.instrumentOp(instrumentParams{op: op, index: b.index, start: start, err: err})
	}(time.Now())

	res, err := b.cli.engine.indexExists(ctx, b.index)
	if err != nil {
		return false, EngineError{Op: op, Index: b.index, Err: err}
	}
	defer drainBody(res)

	switch res.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, engineError(op, b.index, res)
	}
}
