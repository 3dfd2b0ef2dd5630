package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Push sends the collected metrics of a run to a Pushgateway
func Push(gatewayURL, job, runID string) error {
	return PushFrom(prometheus.DefaultGatherer, gatewayURL, job, runID)
}

// PushFrom sends the metrics of gatherer to a Pushgateway, grouped by run
func PushFrom(gatherer prometheus.Gatherer, gatewayURL, job, runID string) error {
	if gatewayURL == "" {
		return nil
	}

	pusher := push.New(gatewayURL, job).Gatherer(gatherer)
	if runID != "" {
		pusher = pusher.Grouping("run_id", runID)
	}

	if err := pusher.Push(); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %v", gatewayURL, err)
	}
	return nil
}
