package metrics

import (
	"context"
	"time"

	"go.temporal.io/sdk/interceptor"
)

// Interceptor is a Temporal WorkerInterceptor recording Prometheus metrics
// for every activity execution on the consolidation task queue.
type Interceptor struct {
	interceptor.WorkerInterceptorBase
	m *Metrics
}

// NewInterceptor creates a metrics interceptor using the given Metrics.
func NewInterceptor(m *Metrics) *Interceptor {
	return &Interceptor{m: m}
}

// InterceptActivity wraps each activity execution to record duration and
// outcome.
func (i *Interceptor) InterceptActivity(ctx context.Context, next interceptor.ActivityInboundInterceptor) interceptor.ActivityInboundInterceptor {
	return &activityInterceptor{
		ActivityInboundInterceptorBase: interceptor.ActivityInboundInterceptorBase{Next: next},
		m:                              i.m,
	}
}

type activityInterceptor struct {
	interceptor.ActivityInboundInterceptorBase
	m        *Metrics
	outbound interceptor.ActivityOutboundInterceptor
}

// Init stores the outbound interceptor so ExecuteActivity can read the
// activity name.
func (a *activityInterceptor) Init(outbound interceptor.ActivityOutboundInterceptor) error {
	a.outbound = outbound
	return a.ActivityInboundInterceptorBase.Init(outbound)
}

func (a *activityInterceptor) ExecuteActivity(ctx context.Context, in *interceptor.ExecuteActivityInput) (interface{}, error) {
	name := ""
	if a.outbound != nil {
		name = a.outbound.GetInfo(ctx).ActivityType.Name
	}
	start := time.Now()

	result, err := a.ActivityInboundInterceptorBase.ExecuteActivity(ctx, in)

	duration := time.Since(start).Seconds()
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	a.m.ActivityDuration.WithLabelValues(name, outcome).Observe(duration)
	a.m.ActivityTotal.WithLabelValues(name, outcome).Inc()

	if name == "RunConsolidation" {
		a.m.ConsolidationRunsTotal.WithLabelValues(outcome).Inc()
	}

	return result, err
}
