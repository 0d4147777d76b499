package corcluster

import (
	"context"
	"fmt"
	"runtime"
	"strconv"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
)

// Config controls correlation clustering.
// Start with [DefaultConfig] and override the fields you need.
type Config struct {
	// Alpha is the significance level of the stopping test. Larger values
	// stop earlier; 1 never stops. Must be in (0, 1]. Default: 0.05.
	Alpha float64

	// Replicates is the number of bootstrap resamples used to estimate the
	// standard errors of the stopping test. 0 disables the test and always
	// yields a complete tree. Must be >= 0. Default: 500.
	Replicates int

	// Stop decides from the p-values of each stopping test whether merging
	// halts. Default: MaxFailures(0), which halts on the first comparison
	// that fails to reject.
	Stop StopRule

	// Metric clusters on the distance sqrt(2(1-rho)) instead of the raw
	// correlation, merging the closest pair rather than the most correlated
	// one. Linkage values are then distances. Default: false.
	Metric bool

	// Bonferroni divides Alpha by the number of variables. Default: false.
	Bonferroni bool

	// Workers bounds the number of bootstrap replicates computed
	// concurrently. 0 means use runtime.NumCPU(). Default: 0 (auto).
	Workers int

	// Seed seeds the bootstrap resampling. Equal seeds give equal results
	// regardless of Workers.
	Seed uint64

	// Logger receives merge progress at debug level, stopping decisions at
	// info level and warnings. Default: the logrus standard logger.
	Logger logrus.FieldLogger
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		Alpha:      0.05,
		Replicates: 500,
		Stop:       MaxFailures(0),
	}
}

// validateConfig checks that cfg fields are valid and returns a descriptive error if not.
func validateConfig(cfg *Config) error {
	if !(cfg.Alpha > 0 && cfg.Alpha <= 1) {
		return fmt.Errorf("%w: Alpha must be in (0, 1], got %f", ErrInvalidConfig, cfg.Alpha)
	}
	if cfg.Replicates < 0 {
		return fmt.Errorf("%w: Replicates must be >= 0, got %d", ErrInvalidConfig, cfg.Replicates)
	}
	switch s := cfg.Stop.(type) {
	case MaxFailures:
		if s < 0 {
			return fmt.Errorf("%w: MaxFailures must be >= 0, got %d", ErrInvalidConfig, int(s))
		}
	case QuantileRule:
		if s < 0 || s > 1 {
			return fmt.Errorf("%w: QuantileRule must be in [0, 1], got %f", ErrInvalidConfig, float64(s))
		}
	}
	return nil
}

// applyDefaults fills in zero-valued config fields with their defaults.
func applyDefaults(cfg *Config) {
	if cfg.Stop == nil {
		cfg.Stop = MaxFailures(0)
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
}

func (cfg *Config) bootstrapConfig() BootstrapConfig {
	return BootstrapConfig{
		Replicates: cfg.Replicates,
		Workers:    cfg.Workers,
		Seed:       cfg.Seed,
		Logger:     cfg.Logger,
	}
}

// Result is the output of correlation clustering. When Complete is true the
// linkage has d-1 merges and describes one tree over all variables;
// otherwise the stopping test halted early and the linkage describes a
// forest whose components are returned by Components.
type Result struct {
	// Linkage lists the merges performed, in order. Values are
	// correlations, or distances when Metric is set.
	Linkage Linkage

	// Labels names the leaves 0..d-1 of Linkage.
	Labels []string

	// Complete reports whether every variable ended up in one tree.
	Complete bool

	// Metric reports whether Linkage values are distances.
	Metric bool

	// HaltPValues holds the p-values of the stopping test that halted
	// merging, or nil for a complete tree.
	HaltPValues []float64
}

// Components returns one Split per connected component of the result, in
// ascending order of root id. Variables that were never merged come first
// as single-leaf splits with an empty linkage.
func (r *Result) Components() []Split {
	merged := make([]bool, len(r.Labels))
	for _, m := range r.Linkage {
		if m.Left < len(r.Labels) {
			merged[m.Left] = true
		}
		if m.Right < len(r.Labels) {
			merged[m.Right] = true
		}
	}
	var out []Split
	for i, ok := range merged {
		if !ok {
			out = append(out, Split{Labels: []string{r.Labels[i]}})
		}
	}
	return append(out, SplitLinkage(r.Linkage, r.Labels, nil)...)
}

// Tree builds the tree (or forest) of the result.
func (r *Result) Tree() (*Tree, error) {
	return NewTree(r.Linkage, r.Labels)
}

// Cluster bootstraps the signed Pearson correlations of an n×d binary
// observation matrix and clusters its d columns. labels names the columns;
// nil labels them "0".."d-1".
func Cluster(ctx context.Context, data [][]uint8, labels []string, cfg Config) (*Result, error) {
	applyDefaults(&cfg)
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	_, d, err := validateObservations(data)
	if err != nil {
		return nil, err
	}
	if labels, err = checkLabels(labels, d); err != nil {
		return nil, err
	}

	stack, err := BootstrapCorrelations(ctx, data, cfg.bootstrapConfig())
	if err != nil {
		return nil, err
	}
	return ClusterStack(stack, labels, cfg)
}

// ClusterTable bootstraps the one-sided correlations of a contingency table
// and clusters its variables.
func ClusterTable(ctx context.Context, ct *ContingencyTable, labels []string, cfg Config) (*Result, error) {
	applyDefaults(&cfg)
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	labels, err := checkLabels(labels, ct.D())
	if err != nil {
		return nil, err
	}

	stack, err := BootstrapTableCorrelations(ctx, ct, cfg.bootstrapConfig())
	if err != nil {
		return nil, err
	}
	return ClusterStack(stack, labels, cfg)
}

// ClusterStack clusters a precomputed correlation stack as produced by
// BootstrapCorrelations or BootstrapTableCorrelations: row 0 holds the
// flattened correlations of the original data and any further rows hold
// bootstrap replicates. A stack with a single row is clustered without a
// stopping test. stack is not modified. Replicates, Workers and Seed are
// ignored.
func ClusterStack(stack mat.Matrix, labels []string, cfg Config) (*Result, error) {
	applyDefaults(&cfg)
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	rows, width := stack.Dims()
	d, ok := dimFromFlatLen(width)
	if !ok || rows == 0 {
		return nil, fmt.Errorf("%w: %d×%d", ErrStackShape, rows, width)
	}
	if d < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewVariables, d)
	}
	labels, err := checkLabels(labels, d)
	if err != nil {
		return nil, err
	}

	cols := make([][]float64, width)
	for k := range cols {
		cols[k] = mat.Col(nil, k, stack)
		if cfg.Metric {
			MetricTransformAll(cols[k])
		}
	}

	alpha := cfg.Alpha
	if cfg.Bonferroni {
		alpha /= float64(d)
	}
	z, pvals := agglomerate(cols, d, alpha, cfg.Stop, cfg.Metric, cfg.Logger)

	if !z.IsMonotonic(cfg.Metric) {
		cfg.Logger.Warn("corcluster: linkage is not monotonic")
	}
	return &Result{
		Linkage:     z,
		Labels:      labels,
		Complete:    len(z) == d-1,
		Metric:      cfg.Metric,
		HaltPValues: pvals,
	}, nil
}

// checkLabels returns labels, or default labels when labels is nil.
func checkLabels(labels []string, d int) ([]string, error) {
	if labels == nil {
		labels = make([]string, d)
		for i := range labels {
			labels[i] = strconv.Itoa(i)
		}
		return labels, nil
	}
	if len(labels) != d {
		return nil, fmt.Errorf("%w: %d labels for %d variables", ErrLabelMismatch, len(labels), d)
	}
	return labels, nil
}
