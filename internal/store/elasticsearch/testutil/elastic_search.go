package testutil

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
)

const (
	esRepository = "docker.elastic.co/elasticsearch/elasticsearch"
	esTag        = "7.17.9"
)

// ErrUnavailable is returned when neither ES_TEST_SERVER_URL nor a docker
// daemon is available. Tests should skip rather than fail on it.
var ErrUnavailable = errors.New("elasticsearch test server unavailable")

// ElasticsearchTestServer is a single node elasticsearch cluster running
// inside docker, or a proxy to an existing one.
// use NewElasticsearchTestServer to instantiate the server
type ElasticsearchTestServer struct {
	url      *url.URL
	pool     *dockertest.Pool
	resource *dockertest.Resource
	client   *elasticsearch.Client
}

// NewElasticsearchTestServer creates a new instance of elasticsearch test server.
// If the environment variable ES_TEST_SERVER_URL is set, it talks to that
// cluster; otherwise it starts a single node cluster in docker, exposing the
// REST API over a random ephemeral port.
// Make sure to call server.Close() once you're done, otherwise the docker
// container is only reaped when it expires.
func NewElasticsearchTestServer() (*ElasticsearchTestServer, error) {
	var server ElasticsearchTestServer

	if esURL, ok := os.LookupEnv("ES_TEST_SERVER_URL"); ok {
		u, err := url.Parse(esURL)
		if err != nil {
			return nil, fmt.Errorf("parse elasticsearch url: %w", err)
		}
		server.url = u
	} else if err := server.runContainer(); err != nil {
		return nil, err
	}

	if err := server.wait4Ready(2 * time.Minute); err != nil {
		_ = server.Close()
		return nil, fmt.Errorf("check elasticsearch status: %w", err)
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{server.url.String()},
	})
	if err != nil {
		_ = server.Close()
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	server.client = client

	return &server, nil
}

func (srv *ElasticsearchTestServer) runContainer() error {
	pool, err := dockertest.NewPool("")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := pool.Client.Ping(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: esRepository,
		Tag:        esTag,
		Env: []string{
			"discovery.type=single-node",
			"xpack.security.enabled=false",
			"ES_JAVA_OPTS=-Xms512m -Xmx512m",
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		return fmt.Errorf("start elasticsearch container: %w", err)
	}

	// Tell docker to hard kill the container in 10 minutes
	if err := resource.Expire(600); err != nil {
		_ = pool.Purge(resource)
		return err
	}

	srv.pool = pool
	srv.resource = resource
	srv.url = &url.URL{
		Scheme: "http",
		Host:   resource.GetHostPort("9200/tcp"),
	}
	return nil
}

// NewClient returns an elasticsearch client for the test server
// Calling this method deletes every index on the server, effectively
// resetting it.
func (srv *ElasticsearchTestServer) NewClient() (*elasticsearch.Client, error) {
	if err := srv.purge(); err != nil {
		return nil, err
	}
	return srv.client, nil
}

func (srv *ElasticsearchTestServer) Close() error {
	if srv.pool == nil || srv.resource == nil {
		return nil
	}
	return srv.pool.Purge(srv.resource)
}

func (srv *ElasticsearchTestServer) purge() (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("purge: %w", err)
		}
	}()
	req, err := http.NewRequest(http.MethodDelete, "/_all", nil)
	if err != nil {
		return err
	}
	res, err := srv.client.Perform(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode > 299 {
		return fmt.Errorf("elasticsearch server returned status code %d", res.StatusCode)
	}
	return nil
}

func (srv *ElasticsearchTestServer) wait4Ready(timeout time.Duration) error {
	healthURL := srv.url.ResolveReference(&url.URL{Path: "/_cluster/health", RawQuery: "wait_for_status=yellow"})
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		time.Sleep(500 * time.Millisecond)
		res, err := http.Get(healthURL.String())
		if err != nil {
			continue
		}
		res.Body.Close()
		if res.StatusCode == http.StatusOK {
			return nil
		}
	}
	return fmt.Errorf("timed out after %s waiting for %s", timeout, strings.TrimSuffix(srv.url.String(), "/"))
}
