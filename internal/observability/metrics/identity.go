package metrics

import (
	"maps"
	"time"

	obserrors "github.com/nicetouch/dashboard/internal/observability/errors"
	"github.com/nicetouch/dashboard/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultStale   = "stale"
)

// ReconcileMetric captures the outcome of one profile reconciliation pass.
type ReconcileMetric struct {
	// Strategy is the name of the strategy that produced the record, empty when none did.
	Strategy string
	Result   string
	Attempts int
	Duration time.Duration
	Err      error
}

// EmitReconcile emits standardised reconciliation metrics.
func EmitReconcile(sink statsd.Sink, in ReconcileMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"strategy": in.Strategy,
		"result":   in.Result,
	}
	if in.Err != nil {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("profile.reconcile", 1, tags)
	if in.Attempts > 0 {
		sink.Gauge("profile.reconcile.attempts", float64(in.Attempts), CloneTags(tags))
	}
	if in.Duration > 0 {
		sink.Timing("profile.reconcile.duration", in.Duration, CloneTags(tags))
	}
}

// OperationMetric captures a single identity or profile operation.
type OperationMetric struct {
	Component string
	Operation string
	Duration  time.Duration
	Err       error
}

// EmitOperation emits a counter (and timing when known) for a user-initiated operation.
func EmitOperation(sink statsd.Sink, in OperationMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"component": in.Component,
		"operation": in.Operation,
		"result":    ResultSuccess,
	}
	if in.Err != nil {
		tags["result"] = ResultError
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("identity.operation", 1, tags)
	if in.Duration > 0 {
		sink.Timing("identity.operation.duration", in.Duration, CloneTags(tags))
	}
}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	return maps.Clone(src)
}
