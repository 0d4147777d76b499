package corcluster

import (
	"context"
	"fmt"
	"math/rand/v2"
	"runtime"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// BootstrapConfig controls how correlation stacks are resampled.
type BootstrapConfig struct {
	// Replicates is the number of bootstrap resamples b. The stack has b+1
	// rows. Zero produces a stack holding only the original estimate.
	Replicates int

	// Workers bounds the number of replicates computed concurrently.
	// 0 means runtime.NumCPU().
	Workers int

	// Seed makes resampling reproducible. Replicate r draws from its own
	// PCG stream seeded with (Seed, r), so the stack does not depend on
	// Workers.
	Seed uint64

	// Logger receives warnings about degenerate replicates. Default: the
	// logrus standard logger.
	Logger logrus.FieldLogger
}

func (c *BootstrapConfig) applyDefaults() {
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.Logger == nil {
		c.Logger = logrus.StandardLogger()
	}
}

func (c *BootstrapConfig) validate() error {
	if c.Replicates < 0 {
		return fmt.Errorf("%w: Replicates must be >= 0, got %d", ErrInvalidConfig, c.Replicates)
	}
	return nil
}

// replicateSource returns the random stream of replicate r.
func replicateSource(seed uint64, r int) rand.Source {
	return rand.NewPCG(seed, uint64(r))
}

// BootstrapCorrelations resamples the rows of an n×d binary matrix with
// replacement and stacks the flattened signed Pearson correlations (see
// FlatPearson) into a (b+1) × d(d-1)/2 matrix. Row 0 is the estimate on the
// original data; rows 1..b are replicates. A pair that is undefined within a
// replicate is stored as NaN.
func BootstrapCorrelations(ctx context.Context, data [][]uint8, cfg BootstrapConfig) (*mat.Dense, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	n, d, err := validateObservations(data)
	if err != nil {
		return nil, err
	}
	if d < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewVariables, d)
	}

	idx := NewFlatIndex(d)
	original, err := FlatPearsonParallel(data, idx, cfg.Workers)
	if err != nil {
		return nil, err
	}

	return bootstrapStack(ctx, cfg, original, func(src rand.Source) ([]float64, int) {
		rng := rand.New(src)
		rows := make([]int, n)
		for i := range rows {
			rows[i] = rng.IntN(n)
		}
		return flatPearsonRows(data, rows, idx)
	})
}

// BootstrapTableCorrelations resamples a contingency table from its own
// empirical distribution (see ContingencyTable.Bootstrap) and stacks the
// one-sided correlations of ContingencyTable.CorrelationVector. Row 0 is the
// estimate on ct itself.
func BootstrapTableCorrelations(ctx context.Context, ct *ContingencyTable, cfg BootstrapConfig) (*mat.Dense, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if ct.D() < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewVariables, ct.D())
	}

	idx := NewFlatIndex(ct.D())
	original, err := ct.CorrelationVector(idx)
	if err != nil {
		return nil, err
	}

	return bootstrapStack(ctx, cfg, original, func(src rand.Source) ([]float64, int) {
		return ct.Bootstrap(src).correlationVector(idx)
	})
}

// bootstrapStack fills rows 1..b by running replicate concurrently. Each
// worker writes only its own row, so no synchronization is needed for the
// stack itself.
func bootstrapStack(ctx context.Context, cfg BootstrapConfig, original []float64, replicate func(rand.Source) ([]float64, int)) (*mat.Dense, error) {
	b := cfg.Replicates
	stack := mat.NewDense(b+1, len(original), nil)
	stack.SetRow(0, original)

	var degenerate atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for r := 1; r <= b; r++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			row, first := replicate(replicateSource(cfg.Seed, r))
			if first >= 0 {
				degenerate.Add(1)
			}
			stack.SetRow(r, row)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("corcluster: bootstrap: %w", err)
	}

	if k := degenerate.Load(); k > 0 {
		cfg.Logger.WithField("replicates", k).
			Warnf("corcluster: %d of %d bootstrap replicates contain a constant variable", k, b)
	}
	return stack, nil
}
