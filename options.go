package phantom

import (
	"context"
	"log/slog"

	"github.com/DRuanli/PHANTOM/bounds"
	"github.com/DRuanli/PHANTOM/calculator"
	"github.com/DRuanli/PHANTOM/core"
	"github.com/DRuanli/PHANTOM/engine"
	"github.com/DRuanli/PHANTOM/mining"
	"github.com/DRuanli/PHANTOM/resource"
)

type options struct {
	alpha            float64
	omega            float64
	epsilon          float64
	strictBounds     bool
	synergies        map[string]float64
	workerCfg        mining.Config
	resources        *resource.Controller
	metricsCollector MetricsCollector
	logger           *Logger
}

// Option configures a Coordinator's constructor behavior.
//
// Breaking changes are expected while PHANTOM is pre-release.
type Option func(*options)

// WithAlpha configures the uncertainty-discount factor used by the
// Expected Utility Calculator. Default 0.1; pass 0 to disable variance
// discounting entirely (required for the determinism property).
func WithAlpha(alpha float64) Option {
	return func(o *options) { o.alpha = alpha }
}

// WithOmega configures the optimism factor applied to the Polar Bounds
// Calculator's optimistic gain term. Default 0.9.
func WithOmega(omega float64) Option {
	return func(o *options) { o.omega = omega }
}

// WithEpsilon configures the negative-confidence factor applied to the
// Polar Bounds Calculator's guaranteed-loss term. Default 0.8.
func WithEpsilon(epsilon float64) Option {
	return func(o *options) { o.epsilon = epsilon }
}

// WithStrictBounds forces the Polar Bounds Calculator's optimism factor
// to 1.0, trading bound tightness for the stronger admissibility
// guarantee requested by the bound-admissibility open question.
func WithStrictBounds() Option {
	return func(o *options) { o.strictBounds = true }
}

// WithSynergies configures a caller-supplied (subset -> bonus) table
// for the Expected Utility Calculator's optional synergy extension.
// Disabled (empty table) by default.
func WithSynergies(table map[string]float64) Option {
	return func(o *options) { o.synergies = table }
}

// WithSpeculation configures the Worker Miner's speculation factor,
// max speculation depth, and max itemset size. Zero values fall back
// to the package defaults.
func WithSpeculation(speculationFactor float64, maxSpeculation, maxItemsetSize int) Option {
	return func(o *options) {
		if speculationFactor > 0 {
			o.workerCfg.SpeculationFactor = speculationFactor
		}
		if maxSpeculation > 0 {
			o.workerCfg.MaxSpeculation = maxSpeculation
		}
		if maxItemsetSize > 0 {
			o.workerCfg.MaxItemsetSize = maxItemsetSize
		}
	}
}

// WithSyncInterval configures how many candidates a worker processes
// between forced flushes to the global top-K.
func WithSyncInterval(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workerCfg.SyncInterval = n
		}
	}
}

// WithResourceController attaches a resource.Controller to the mining
// run. Mine enforces only its background-worker ceiling (one slot per
// worker task); its memory and IO limits are not consulted by Mine.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) { o.resources = rc }
}

// WithMetricsCollector configures a metrics collector for monitoring
// operations. Pass nil to disable metrics collection.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) { o.metricsCollector = mc }
}

// WithLogger configures structured logging for operations. Pass nil to
// disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithLogLevel creates a text logger with the specified level and sets
// it. Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) { o.logger = NewTextLogger(level) }
}

func applyOptions(optFns []Option) options {
	o := options{
		alpha:            calculator.DefaultAlpha,
		omega:            bounds.DefaultOmega,
		epsilon:          bounds.DefaultEpsilon,
		workerCfg:        mining.DefaultConfig(),
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}

// Coordinator wraps engine.Coordinator so its errors pass through
// translateError before reaching the caller, giving the public surface
// a single stable sentinel vocabulary regardless of which internal
// component raised the underlying error.
type Coordinator struct {
	*engine.Coordinator
}

// Mine delegates to the wrapped engine.Coordinator and normalizes the
// returned error.
func (c *Coordinator) Mine(ctx context.Context, db *core.Database, k int) ([]core.Itemset, error) {
	results, err := c.Coordinator.Mine(ctx, db, k)
	return results, translateError(err)
}

// NewCoordinator builds a Coordinator wired to the given processor
// count and functional options, bridging the root package's
// config/logging/metrics surface to the engine package's Coordinator
// fields without engine needing to import phantom.
func NewCoordinator(processors int, optFns ...Option) *Coordinator {
	o := applyOptions(optFns)
	c := engine.NewCoordinator(processors)
	c.Alpha = o.alpha
	c.Omega = o.omega
	c.Epsilon = o.epsilon
	c.StrictBounds = o.strictBounds
	c.Synergies = o.synergies
	c.WorkerCfg = o.workerCfg
	c.Resources = o.resources
	if o.logger != nil {
		c.Logger = o.logger
	}
	c.Metrics = o.metricsCollector
	return &Coordinator{Coordinator: c}
}
