package elasticsearch

import (
	"github.com/elastic/go-elasticsearch/v7"
	"github.com/goto/jes/pkg/statsd"
	"github.com/opensearch-project/opensearch-go/v2"
)

type ClientOption func(*Client)

func WithClient(cli *elasticsearch.Client) ClientOption {
	return func(c *Client) {
		c.engine = esExecutor{client: cli}
	}
}

func WithOpenSearchClient(cli *opensearch.Client) ClientOption {
	return func(c *Client) {
		c.engine = osExecutor{client: cli}
	}
}

// WithStatsD reports a counter and a timer for every request executed.
func WithStatsD(reporter *statsd.Reporter) ClientOption {
	return func(c *Client) {
		c.statsd = reporter
	}
}

type BuilderOption func(*Builder)

// WithPageSize sets the default number of hits a search returns.
func WithPageSize(size int) BuilderOption {
	return func(b *Builder) {
		b.pageSize = size
	}
}

// WithAllowEmptyCriteria makes empty criteria match every document of the
// index instead of failing with a ValidationError.
func WithAllowEmptyCriteria(allow bool) BuilderOption {
	return func(b *Builder) {
		b.allowEmptyCriteria = allow
	}
}

// WithAllowedFields restricts the field names accepted in criteria and
// update scripts. No restriction applies when empty.
func WithAllowedFields(fields ...string) BuilderOption {
	return func(b *Builder) {
		if len(fields) == 0 {
			b.allowedFields = nil
			return
		}
		b.allowedFields = make(map[string]bool, len(fields))
		for _, f := range fields {
			b.allowedFields[f] = true
		}
	}
}
