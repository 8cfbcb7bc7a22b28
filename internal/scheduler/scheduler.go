package scheduler

import (
	"fmt"
	"time"

	"k8s.io/klog/v2"

	v1 "github.com/NVIDIA/bundle-scheduler/api/config/v1"
	"github.com/NVIDIA/bundle-scheduler/internal/resources"
)

// SchedulingType is the placement strategy of one decision.
type SchedulingType int

const (
	Pack SchedulingType = iota
	Spread
	StrictPack
	StrictSpread
)

func (t SchedulingType) String() string {
	switch t {
	case Pack:
		return v1.StrategyPack.String()
	case Spread:
		return v1.StrategySpread.String()
	case StrictPack:
		return v1.StrategyStrictPack.String()
	case StrictSpread:
		return v1.StrategyStrictSpread.String()
	}
	return fmt.Sprintf("SchedulingType(%d)", int(t))
}

// ParseSchedulingType converts a strategy name as accepted by
// v1.ParseStrategy.
func ParseSchedulingType(s string) (SchedulingType, error) {
	strategy, err := v1.ParseStrategy(s)
	if err != nil {
		return 0, err
	}
	switch strategy {
	case v1.StrategySpread:
		return Spread, nil
	case v1.StrategyStrictPack:
		return StrictPack, nil
	case v1.StrategyStrictSpread:
		return StrictSpread, nil
	}
	return Pack, nil
}

// SchedulingResultStatus is the outcome of a decision.
type SchedulingResultStatus int

const (
	// Success means every bundle has a node.
	Success SchedulingResultStatus = iota
	// Failed means the bundles do not fit the current availability. A later
	// attempt may succeed.
	Failed
	// Infeasible means no attempt with the same input can succeed.
	Infeasible
)

func (s SchedulingResultStatus) String() string {
	switch s {
	case Success:
		return "SUCCESS"
	case Failed:
		return "FAILED"
	case Infeasible:
		return "INFEASIBLE"
	}
	return fmt.Sprintf("SchedulingResultStatus(%d)", int(s))
}

// SchedulingResult is a decision. Nodes holds one node per bundle, in the
// order the bundles were given, and is empty unless Status is Success.
type SchedulingResult struct {
	Status SchedulingResultStatus
	Nodes  []resources.NodeID
}

// Scheduler decides bundle placements against a resource ledger. It holds
// no state between decisions; concurrent Schedule calls against the same
// ledger must be serialized by the caller.
type Scheduler struct {
	ledger  ResourceLedger
	scorer  NodeScorer
	metrics *Metrics
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithScorer replaces the default LeastResourceScorer.
func WithScorer(scorer NodeScorer) Option {
	return func(s *Scheduler) {
		s.scorer = scorer
	}
}

// WithMetrics records every decision in m.
func WithMetrics(m *Metrics) Option {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

// NewScheduler constructs a scheduler over ledger.
func NewScheduler(ledger ResourceLedger, opts ...Option) *Scheduler {
	s := &Scheduler{
		ledger: ledger,
		scorer: LeastResourceScorer{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule decides a node for every bundle. Only nodes passing filter are
// considered; a nil filter admits every node. Provisional acquisitions made
// while deciding are released before Schedule returns.
func (s *Scheduler) Schedule(bundles []*resources.ResourceRequest, strategy SchedulingType, filter NodeFilter) SchedulingResult {
	start := time.Now()
	result := s.schedule(bundles, strategy, filter)
	s.metrics.observeDecision(strategy, result.Status, time.Since(start))
	klog.V(2).InfoS("Scheduled bundles", "strategy", strategy, "bundles", len(bundles), "status", result.Status, "nodes", result.Nodes)
	return result
}

func (s *Scheduler) schedule(bundles []*resources.ResourceRequest, strategy SchedulingType, filter NodeFilter) SchedulingResult {
	candidates := filterCandidateNodes(s.ledger.GetClusterResources(), filter)
	if candidates.Len() == 0 {
		klog.V(2).InfoS("No candidate nodes", "strategy", strategy)
		return SchedulingResult{Status: Infeasible}
	}

	if strategy == StrictPack {
		return s.strictPackSchedule(bundles, candidates)
	}

	perm := sortByPriority(bundles)
	ordered := make([]*resources.ResourceRequest, len(bundles))
	for k, idx := range perm {
		ordered[k] = bundles[idx]
	}

	var result SchedulingResult
	switch strategy {
	case Pack:
		result = s.packSchedule(ordered, candidates)
	case Spread:
		result = s.spreadSchedule(ordered, candidates)
	case StrictSpread:
		result = s.strictSpreadSchedule(ordered, candidates)
	default:
		err := fmt.Errorf("unsupported scheduling type %v", strategy)
		klog.ErrorS(err, "Cannot schedule bundles")
		panic(err)
	}

	if result.Status == Success {
		result.Nodes = restoreOrder(result.Nodes, perm)
	}
	return result
}
