package telemetry

import (
	"context"
	"time"

	"github.com/goto/salt/log"
	"github.com/newrelic/go-agent/v3/newrelic"
)

const gracePeriod = 5 * time.Second

type Config struct {
	AppName  string         `yaml:"app_name" mapstructure:"app_name" default:"jes"`
	NewRelic NewRelicConfig `yaml:"newrelic" mapstructure:"newrelic"`
}

// Init starts the New Relic agent when enabled. A nil application is
// returned otherwise; cleanUp is always safe to call.
func Init(cfg Config, logger log.Logger) (nrApp *newrelic.Application, cleanUp func(), err error) {
	nrApp, err = initNewRelicMonitor(cfg.AppName, cfg.NewRelic, logger)
	if err != nil {
		return nil, noOp, err
	}
	if nrApp == nil {
		return nil, noOp, nil
	}

	return nrApp, func() {
		nrApp.Shutdown(gracePeriod)
	}, nil
}

// StartTransaction records operation as a New Relic transaction carried by
// the returned context, so requests made with it are attached as segments.
// It is a no-op for a nil application.
func StartTransaction(ctx context.Context, nrApp *newrelic.Application, operation string) (context.Context, func()) {
	if nrApp == nil {
		return ctx, noOp
	}

	txn := nrApp.StartTransaction(operation)
	return newrelic.NewContext(ctx, txn), func() {
		txn.End()
	}
}

func noOp() {}
