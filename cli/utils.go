package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/goto/jes/core/profile"
	esStore "github.com/goto/jes/internal/store/elasticsearch"
	"github.com/goto/jes/pkg/statsd"
	"github.com/goto/jes/pkg/telemetry"
	"github.com/goto/salt/log"
	"github.com/olivere/elastic/v7"
)

func prettyPrint(i interface{}) string {
	s, _ := json.MarshalIndent(i, "", "\t")
	return string(s)
}

// parseCriteria turns "field=value" arguments into criteria. With typed set,
// values that read as a JSON bool, string or number keep their JSON type and
// anything else, null included, is a plain string.
func parseCriteria(args []string, typed bool) (esStore.Criteria, error) {
	criteria := make(esStore.Criteria, len(args))
	for _, arg := range args {
		field, raw, ok := strings.Cut(arg, "=")
		field = strings.TrimSpace(field)
		if !ok || field == "" {
			return nil, fmt.Errorf("invalid criterion %q: expected <field>=<value>", arg)
		}
		if _, dup := criteria[field]; dup {
			return nil, fmt.Errorf("invalid criterion %q: field %q given more than once", arg, field)
		}

		var value interface{} = raw
		if typed {
			if v, ok := esStore.ParseLiteral(raw); ok && v != nil {
				value = v
			}
		}
		criteria[field] = value
	}
	return criteria, nil
}

type hit struct {
	ID     string          `json:"_id"`
	Index  string          `json:"_index"`
	Source json.RawMessage `json:"_source,omitempty"`
}

func hitsOf(res *elastic.SearchResult) []hit {
	hits := []hit{}
	if res == nil || res.Hits == nil {
		return hits
	}
	for _, h := range res.Hits.Hits {
		hits = append(hits, hit{ID: h.Id, Index: h.Index, Source: h.Source})
	}
	return hits
}

func initLogger(logLevel string) *log.Logrus {
	logger := log.NewLogrus(
		log.LogrusWithLevel(logLevel),
		log.LogrusWithWriter(os.Stderr),
	)
	return logger
}

func initElasticsearch(ctx context.Context, logger log.Logger, config esStore.Config, opts ...esStore.ClientOption) (*esStore.Client, error) {
	esClient, err := esStore.NewClient(logger, config, opts...)
	if err != nil {
		return nil, fmt.Errorf("create new elasticsearch client: %w", err)
	}
	got, err := esClient.Init(ctx)
	if err != nil {
		return nil, fmt.Errorf("establish connection to elasticsearch: %w", err)
	}
	logger.Debug("connected to elasticsearch", "info", got)
	return esClient, nil
}

// session is what a command needs to talk to one index: a builder bound to
// the active profile's cluster and the context carrying the command's
// transaction.
type session struct {
	ctx     context.Context
	builder *esStore.Builder
	closers []func()
}

func (s *session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// openSession connects with the configured profile and returns a builder
// for index. Close must be called once the command is done, even on error.
func openSession(ctx context.Context, cfg *Config, operation, index string) (_ *session, err error) {
	if strings.TrimSpace(index) == "" {
		return nil, errIndexRequired
	}

	logger := initLogger(cfg.LogLevel)
	s := &session{ctx: ctx}
	defer func() {
		if err != nil {
			s.Close()
		}
	}()

	nrApp, cleanUp, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, cleanUp)

	var endTxn func()
	s.ctx, endTxn = telemetry.StartTransaction(ctx, nrApp, operation)
	s.closers = append(s.closers, endTxn)

	reporter, err := statsd.Init(logger, cfg.StatsD)
	if err != nil {
		return nil, fmt.Errorf("init statsd reporter: %w", err)
	}
	s.closers = append(s.closers, func() {
		if err := reporter.Close(); err != nil {
			logger.Warn("failed to close statsd reporter", "err", err)
		}
	})

	p, err := profile.Load(profile.NewFileStore(cfg.Elasticsearch.ProfileDir), cfg.Elasticsearch.Profile)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	esConfig := esStore.ConfigFromProfile(p)
	esConfig.Engine = cfg.Elasticsearch.Engine
	esConfig.InsecureSkipVerify = cfg.Elasticsearch.InsecureSkipVerify

	esClient, err := initElasticsearch(s.ctx, logger, esConfig, esStore.WithStatsD(reporter))
	if err != nil {
		return nil, err
	}

	opts := []esStore.BuilderOption{esStore.WithAllowEmptyCriteria(cfg.Elasticsearch.AllowEmptyCriteria)}
	if cfg.Elasticsearch.PageSize > 0 {
		opts = append(opts, esStore.WithPageSize(cfg.Elasticsearch.PageSize))
	}
	s.builder, err = esStore.NewBuilder(esClient, index, opts...)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func indexOrDefault(index string, cfg *Config) string {
	if index != "" {
		return index
	}
	return cfg.Elasticsearch.Index
}
