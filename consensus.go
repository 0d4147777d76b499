package corcluster

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// FlatAgreement reports, for every merge of z0, whether z1 contains a
// cluster with exactly the same leaves: the smallest subtree of z1 covering
// the merge's leaves must hold no other leaf. Both linkages range over the
// same labels. Leaves spread over different components of a forest z1
// disagree.
func FlatAgreement(z0, z1 Linkage, labels []string) ([]bool, error) {
	t0, t1, err := treePair(z0, z1, labels)
	if err != nil {
		return nil, err
	}
	n := len(labels)
	agree := make([]bool, len(z0))
	for i := range z0 {
		leaves := t0.Leaves(n + i)
		root, err := t1.SubtreeFromLeaves(leaves)
		if errors.Is(err, ErrDisjointLeaves) {
			continue
		}
		if err != nil {
			return nil, err
		}
		// The subtree covers leaves, so equal counts mean equal sets.
		agree[i] = len(t1.Leaves(root)) == len(leaves)
	}
	return agree, nil
}

// MergeAgreement reports, for every merge of z0, whether z1 joins the same
// two clusters: the smallest subtree of z1 covering both children of the
// merge must split into exactly those two leaf sets, in either order.
func MergeAgreement(z0, z1 Linkage, labels []string) ([]bool, error) {
	t0, t1, err := treePair(z0, z1, labels)
	if err != nil {
		return nil, err
	}
	agree := make([]bool, len(z0))
	for i, m := range z0 {
		a := t0.Leaves(m.Left)
		b := t0.Leaves(m.Right)
		root, err := t1.SubtreeFromLeaves(append(append([]int(nil), a...), b...))
		if errors.Is(err, ErrDisjointLeaves) {
			continue
		}
		if err != nil {
			return nil, err
		}
		c := t1.Children(root)
		if c == nil {
			continue
		}
		c0, c1 := t1.Leaves(c[0]), t1.Leaves(c[1])
		agree[i] = (sameLeaves(a, c0) && sameLeaves(b, c1)) ||
			(sameLeaves(a, c1) && sameLeaves(b, c0))
	}
	return agree, nil
}

// FlatConsensus returns, per merge of z0, the fraction of replicate
// linkages that reproduce its cluster (see FlatAgreement).
func FlatConsensus(z0 Linkage, boot []Linkage, labels []string) ([]float64, error) {
	return consensusFraction(z0, boot, labels, FlatAgreement)
}

// MergeConsensus returns, per merge of z0, the fraction of replicate
// linkages that reproduce the merge itself (see MergeAgreement).
func MergeConsensus(z0 Linkage, boot []Linkage, labels []string) ([]float64, error) {
	return consensusFraction(z0, boot, labels, MergeAgreement)
}

type agreementFunc func(z0, z1 Linkage, labels []string) ([]bool, error)

func consensusFraction(z0 Linkage, boot []Linkage, labels []string, agreement agreementFunc) ([]float64, error) {
	if len(boot) == 0 {
		return nil, fmt.Errorf("%w: no replicate linkages", ErrEmptyInput)
	}
	frac := make([]float64, len(z0))
	for _, z1 := range boot {
		agree, err := agreement(z0, z1, labels)
		if err != nil {
			return nil, err
		}
		for i, ok := range agree {
			if ok {
				frac[i]++
			}
		}
	}
	for i := range frac {
		frac[i] /= float64(len(boot))
	}
	return frac, nil
}

// MaxSublinkage returns the rows of z0, in order, that form the largest
// sub-linkage of z0 embedding into z1. A merge embeds when both of its
// children embed and their images in z1 are siblings.
func MaxSublinkage(z0, z1 Linkage, labels []string) ([]int, error) {
	if err := z0.Validate(len(labels)); err != nil {
		return nil, err
	}
	t1, err := NewTree(z1, labels)
	if err != nil {
		return nil, err
	}
	n := len(labels)
	// image maps nodes of z0 to nodes of z1; -1 marks a merge that does not
	// embed. Leaves map to themselves.
	image := make([]int, n+len(z0))
	for i := 0; i < n; i++ {
		image[i] = i
	}

	var rows []int
	for i, m := range z0 {
		image[n+i] = -1
		a, b := image[m.Left], image[m.Right]
		if a == -1 || b == -1 {
			continue
		}
		if p := t1.Parent(a); p != -1 && p == t1.Parent(b) {
			image[n+i] = p
			rows = append(rows, i)
		}
	}
	return rows, nil
}

// ConsensusMerges returns the rows of z0 whose merges belong to the maximal
// embedded sub-linkage (see MaxSublinkage) of at least a fraction p of the
// replicate linkages.
func ConsensusMerges(z0 Linkage, boot []Linkage, labels []string, p float64) ([]int, error) {
	counts := make([]int, len(z0))
	for _, z1 := range boot {
		rows, err := MaxSublinkage(z0, z1, labels)
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			counts[r]++
		}
	}
	var out []int
	for i, c := range counts {
		if float64(c) >= p*float64(len(boot)) {
			out = append(out, i)
		}
	}
	return out, nil
}

// ConsensusKind selects how ConsensusCluster scores a merge.
type ConsensusKind string

const (
	// ConsensusFlat scores the cluster a merge creates (FlatConsensus).
	ConsensusFlat ConsensusKind = "flat"
	// ConsensusMerge scores the pairing itself (MergeConsensus).
	ConsensusMerge ConsensusKind = "merge"
)

// ConsensusConfig controls ConsensusCluster.
type ConsensusConfig struct {
	// Method is the linkage fitted on every stack row. Default: average.
	Method LinkageMethod

	// Kind selects flat or merge-point consensus. Default: flat.
	Kind ConsensusKind

	// Metric fits on sqrt(2(1-rho)) instead of 1-rho. Linkage values are
	// then distances; otherwise they are reported back as correlations.
	Metric bool

	// Workers bounds the number of rows fitted concurrently. 0 means use
	// runtime.NumCPU().
	Workers int

	// Logger receives a summary of the run. Default: the logrus standard
	// logger.
	Logger logrus.FieldLogger
}

// DefaultConsensusConfig returns a ConsensusConfig with reasonable defaults.
func DefaultConsensusConfig() ConsensusConfig {
	return ConsensusConfig{
		Method: LinkageAverage,
		Kind:   ConsensusFlat,
	}
}

func (c *ConsensusConfig) applyDefaults() {
	if c.Method == "" {
		c.Method = LinkageAverage
	}
	if c.Kind == "" {
		c.Kind = ConsensusFlat
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.Logger == nil {
		c.Logger = logrus.StandardLogger()
	}
}

// ConsensusCluster fits a linkage on every row of a correlation stack with
// HierarchicalLinkage and scores each merge of the row-0 linkage by its
// consensus among the linkages of rows 1.., which must exist. The result
// carries one confidence per merge.
func ConsensusCluster(ctx context.Context, stack mat.Matrix, labels []string, cfg ConsensusConfig) (*Annotated, error) {
	cfg.applyDefaults()
	var consensus func(Linkage, []Linkage, []string) ([]float64, error)
	switch cfg.Kind {
	case ConsensusFlat:
		consensus = FlatConsensus
	case ConsensusMerge:
		consensus = MergeConsensus
	default:
		return nil, fmt.Errorf("%w: unknown consensus kind %q", ErrInvalidConfig, cfg.Kind)
	}

	rows, width := stack.Dims()
	d, ok := dimFromFlatLen(width)
	if !ok || rows < 2 {
		return nil, fmt.Errorf("%w: %d×%d, need the original row and at least one replicate", ErrStackShape, rows, width)
	}
	labels, err := checkLabels(labels, d)
	if err != nil {
		return nil, err
	}

	fits := make([]Linkage, rows)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for r := 0; r < rows; r++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			dist := mat.Row(nil, r, stack)
			for k, rho := range dist {
				if cfg.Metric {
					dist[k] = MetricTransform(rho)
				} else {
					dist[k] = 1 - rho
				}
			}
			z, err := hierarchicalLinkage(dist, d, cfg.Method, cfg.Logger)
			if err != nil {
				return err
			}
			if !cfg.Metric {
				for i := range z {
					z[i].Value = 1 - z[i].Value
				}
			}
			fits[r] = z
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("corcluster: consensus: %w", err)
	}

	conf, err := consensus(fits[0], fits[1:], labels)
	if err != nil {
		return nil, err
	}
	cfg.Logger.WithFields(logrus.Fields{
		"method":     cfg.Method,
		"kind":       cfg.Kind,
		"replicates": rows - 1,
	}).Debug("corcluster: consensus computed")
	return &Annotated{Linkage: fits[0], Confidence: conf}, nil
}

// treePair builds the trees of two linkages over the same labels.
func treePair(z0, z1 Linkage, labels []string) (*Tree, *Tree, error) {
	t0, err := NewTree(z0, labels)
	if err != nil {
		return nil, nil, err
	}
	t1, err := NewTree(z1, labels)
	if err != nil {
		return nil, nil, err
	}
	return t0, t1, nil
}

// sameLeaves reports whether a and b hold the same leaf ids.
func sameLeaves(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[int]bool, len(a))
	for _, l := range a {
		set[l] = true
	}
	for _, l := range b {
		if !set[l] {
			return false
		}
	}
	return true
}
