package elasticsearch

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/elastic/go-elasticsearch/v7"
	"github.com/go-playground/validator/v10"
	"github.com/goto/jes/core/profile"
	"github.com/goto/jes/pkg/statsd"
	"github.com/goto/salt/log"
	"github.com/newrelic/go-agent/v3/integrations/nrelasticsearch-v7"
	"github.com/opensearch-project/opensearch-go/v2"
)

var validate = validator.New()

// Config holds what is needed to connect to a cluster.
type Config struct {
	Hosts    []string `validate:"required,min=1,dive,required"`
	Username string   `validate:"required"`
	Password string   `validate:"required"`

	// Engine selects the client library, EngineElasticsearch when empty.
	Engine string `validate:"omitempty,oneof=elasticsearch opensearch"`

	// InsecureSkipVerify turns off TLS certificate verification.
	// Verification is on unless this is set explicitly.
	InsecureSkipVerify bool
}

// ConfigFromProfile maps a credential profile to a client Config.
func ConfigFromProfile(p profile.Profile) Config {
	hosts := make([]string, len(p.Hosts))
	copy(hosts, p.Hosts)
	return Config{
		Hosts:    hosts,
		Username: p.Username,
		Password: p.Password,
	}
}

// IndexStats is one row of the _cat/indices API.
type IndexStats struct {
	Health       string `json:"health"`
	Status       string `json:"status"`
	Index        string `json:"index"`
	UUID         string `json:"uuid"`
	Pri          string `json:"pri"`
	Rep          string `json:"rep"`
	DocsCount    string `json:"docs.count"`
	DocsDeleted  string `json:"docs.deleted"`
	StoreSize    string `json:"store.size"`
	PriStoreSize string `json:"pri.store.size"`
}

// Client wraps a go-elasticsearch or opensearch-go client. It is safe for
// concurrent use, as are the underlying clients.
type Client struct {
	engine executor
	logger log.Logger
	statsd *statsd.Reporter
}

func NewClient(logger log.Logger, config Config, opts ...ClientOption) (*Client, error) {
	c := &Client{
		logger: logger,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.engine != nil {
		return c, nil
	}

	if err := validate.Struct(config); err != nil {
		return nil, ValidationError{Op: "NewClient", Reason: fieldErrors(err)}
	}

	if config.InsecureSkipVerify {
		logger.Warn("TLS certificate verification is disabled", "hosts", strings.Join(config.Hosts, ","))
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: config.InsecureSkipVerify, //nolint:gosec
	}

	if config.Engine == EngineOpenSearch {
		osClient, err := opensearch.NewClient(opensearch.Config{
			Addresses:    config.Hosts,
			Username:     config.Username,
			Password:     config.Password,
			Transport:    nrelasticsearch.NewRoundTripper(transport),
			DisableRetry: true,
		})
		if err != nil {
			return nil, fmt.Errorf("create opensearch client: %w", err)
		}
		c.engine = osExecutor{client: osClient}
		return c, nil
	}

	esClient, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:    config.Hosts,
		Username:     config.Username,
		Password:     config.Password,
		Transport:    nrelasticsearch.NewRoundTripper(transport),
		DisableRetry: true,
		// uncomment below code to debug request and response to elasticsearch
		// Logger: &estransport.ColorLogger{
		//	Output:             os.Stdout,
		//	EnableRequestBody:  true,
		//	EnableResponseBody: true,
		// },
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	c.engine = esExecutor{client: esClient}

	return c, nil
}

// Init checks that the cluster is reachable, runs a supported version and
// is the engine the client was built for. It returns a short description
// of the cluster.
func (c *Client) Init(ctx context.Context) (string, error) {
	res, err := c.engine.info(ctx)
	if err != nil {
		return "", EngineError{Op: "Info", Err: err}
	}
	defer drainBody(res)
	if res.IsError() {
		return "", engineError("Info", "", res)
	}

	var info = struct {
		ClusterName string `json:"cluster_name"`
		Version     struct {
			Number       string `json:"number"`
			Distribution string `json:"distribution"`
		} `json:"version"`
	}{}
	if err := json.NewDecoder(res.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("decode cluster info: %w", err)
	}

	server := EngineElasticsearch
	if info.Version.Distribution == EngineOpenSearch {
		server = EngineOpenSearch
	}
	if server != c.engine.name() {
		return "", fmt.Errorf("cluster %q runs %s but the client is configured for %s", info.ClusterName, server, c.engine.name())
	}

	v, err := semver.NewVersion(info.Version.Number)
	if err != nil {
		return "", fmt.Errorf("parse server version %q: %w", info.Version.Number, err)
	}
	if minMajor := c.engine.minServerMajor(); v.Major() < minMajor {
		return "", fmt.Errorf("unsupported server version %s: need %d.x or later", v, minMajor)
	}

	if server == EngineOpenSearch {
		return fmt.Sprintf("%q (opensearch server version %s)", info.ClusterName, info.Version.Number), nil
	}
	return fmt.Sprintf("%q (server version %s)", info.ClusterName, info.Version.Number), nil
}

type instrumentParams struct {
	op    string
	index string
	start time.Time
	err   error
}

func (c *Client) instrumentOp(p instrumentParams) {
	if c.statsd == nil {
		return
	}

	counter := c.statsd.Incr("es_request").Tag("op", p.op)
	timer := c.statsd.Timing("es_request_duration", time.Since(p.start)).Tag("op", p.op)
	if p.index != "" {
		counter.Tag("index", p.index)
		timer.Tag("index", p.index)
	}
	if p.err != nil {
		counter.Failure()
	} else {
		counter.Success()
	}
	counter.Publish()
	timer.Publish()
}

func engineError(op, index string, res *response) error {
	code, reason := errorCodeAndReason(res)
	return EngineError{
		Op:     op,
		Index:  index,
		Status: res.StatusCode,
		ESCode: code,
		Err:    errors.New(reason),
	}
}

// extract error type and reason from an elasticsearch response
// returns the raw message in case it fails
func errorCodeAndReason(res *response) (code, reason string) {
	var (
		response struct {
			Error json.RawMessage `json:"error"`
		}
		copy bytes.Buffer
	)
	if res.Body == nil {
		return "", res.Status()
	}
	reader := io.TeeReader(res.Body, &copy)
	if err := json.NewDecoder(reader).Decode(&response); err != nil || len(response.Error) == 0 {
		if copy.Len() == 0 {
			return "", res.Status()
		}
		return "", fmt.Sprintf("raw response = %s", copy.String())
	}

	var detail struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal(response.Error, &detail); err == nil && detail.Type != "" {
		return detail.Type, detail.Reason
	}

	var msg string
	if err := json.Unmarshal(response.Error, &msg); err == nil {
		return "", msg
	}
	return "", string(response.Error)
}

func drainBody(res *response) {
	if res == nil || res.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, res.Body)
	_ = res.Body.Close()
}

func fieldErrors(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	var missing, invalid []string
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		if fe.Tag() == "oneof" {
			invalid = append(invalid, fmt.Sprintf("%s must be one of [%s], got %q", field, fe.Param(), fe.Value()))
			continue
		}
		missing = append(missing, field)
	}

	var reasons []string
	if len(missing) > 0 {
		reasons = append(reasons, "missing or empty "+strings.Join(missing, ", "))
	}
	return strings.Join(append(reasons, invalid...), "; ")
}
