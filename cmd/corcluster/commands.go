package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize/english"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/yiyanshou/corcluster"
)

var (
	inputPath string
	stackPath string

	bootstrapCmd = &cobra.Command{
		Use:   "bootstrap",
		Short: "Write the bootstrap correlation stack of an observation CSV",
		Args:  cobra.NoArgs,
		RunE:  runBootstrap,
	}

	clusterCmd = &cobra.Command{
		Use:   "cluster",
		Short: "Cluster variables with the bootstrap stopping test",
		Args:  cobra.NoArgs,
		RunE:  runCluster,
	}

	consensusCmd = &cobra.Command{
		Use:   "consensus",
		Short: "Fit a linkage per stack row and score merges by bootstrap consensus",
		Args:  cobra.NoArgs,
		RunE:  runConsensus,
	}
)

func init() {
	bootstrapCmd.Flags().StringVarP(&inputPath, "input", "i", "", "observation CSV (header = variable labels)")
	addBootstrapFlags(bootstrapCmd.Flags())
	_ = bootstrapCmd.MarkFlagRequired("input")

	clusterCmd.Flags().StringVarP(&inputPath, "input", "i", "", "observation CSV (header = variable labels)")
	clusterCmd.Flags().StringVarP(&stackPath, "stack", "s", "", "stack JSON written by the bootstrap command")
	addBootstrapFlags(clusterCmd.Flags())
	addClusterFlags(clusterCmd.Flags())
	clusterCmd.MarkFlagsOneRequired("input", "stack")
	clusterCmd.MarkFlagsMutuallyExclusive("input", "stack")

	consensusCmd.Flags().StringVarP(&inputPath, "input", "i", "", "observation CSV (header = variable labels)")
	consensusCmd.Flags().StringVarP(&stackPath, "stack", "s", "", "stack JSON written by the bootstrap command")
	addBootstrapFlags(consensusCmd.Flags())
	addConsensusFlags(consensusCmd.Flags())
	consensusCmd.MarkFlagsOneRequired("input", "stack")
	consensusCmd.MarkFlagsMutuallyExclusive("input", "stack")
}

func runBootstrap(cmd *cobra.Command, args []string) error {
	start := time.Now()
	data, labels, err := loadObservations(inputPath)
	if err != nil {
		return err
	}
	stack, err := corcluster.BootstrapCorrelations(cmd.Context(), data, cfg.bootstrapConfig())
	if err != nil {
		return err
	}
	log.Infof("computed %s in %s", english.Plural(cfg.Replicates, "replicate", "replicates"), time.Since(start))
	return writeJSON(newStackFile(stack, labels))
}

// stackInput returns the stack from --stack, or bootstraps one from --input.
func stackInput(cmd *cobra.Command) (*mat.Dense, []string, error) {
	if stackPath != "" {
		return loadStack(stackPath)
	}
	data, labels, err := loadObservations(inputPath)
	if err != nil {
		return nil, nil, err
	}
	stack, err := corcluster.BootstrapCorrelations(cmd.Context(), data, cfg.bootstrapConfig())
	if err != nil {
		return nil, nil, err
	}
	return stack, labels, nil
}

type splitOutput struct {
	Labels  []string     `json:"labels"`
	Linkage [][4]float64 `json:"linkage"`
}

type clusterOutput struct {
	Labels     []string      `json:"labels"`
	Linkage    [][4]float64  `json:"linkage"`
	Complete   bool          `json:"complete"`
	Metric     bool          `json:"metric"`
	Monotonic  bool          `json:"monotonic"`
	Components []splitOutput `json:"components"`
}

func runCluster(cmd *cobra.Command, args []string) error {
	ccfg, err := cfg.clusterConfig()
	if err != nil {
		return err
	}
	switch corcluster.SplitSortKey(cfg.Sort) {
	case corcluster.SortBySize, corcluster.SortByMin, corcluster.SortByMax, corcluster.SortByMean:
	default:
		return fmt.Errorf("invalid sort key %q", cfg.Sort)
	}
	stack, labels, err := stackInput(cmd)
	if err != nil {
		return err
	}
	res, err := corcluster.ClusterStack(stack, labels, ccfg)
	if err != nil {
		return err
	}

	splits := corcluster.SortSplits(res.Components(), corcluster.SplitSortKey(cfg.Sort), cfg.Descending)
	out := clusterOutput{
		Labels:    res.Labels,
		Linkage:   res.Linkage.Rows(),
		Complete:  res.Complete,
		Metric:    res.Metric,
		Monotonic: res.Linkage.IsMonotonic(res.Metric),
	}
	for _, s := range splits {
		out.Components = append(out.Components, splitOutput{Labels: s.Labels, Linkage: s.Linkage.Rows()})
	}
	log.Infof("clustered %s into %s", english.Plural(len(res.Labels), "variable", "variables"),
		english.Plural(len(splits), "component", "components"))
	return writeJSON(out)
}

type consensusOutput struct {
	Labels  []string     `json:"labels"`
	Method  string       `json:"method"`
	Kind    string       `json:"kind"`
	Linkage [][5]float64 `json:"linkage"`
}

func runConsensus(cmd *cobra.Command, args []string) error {
	stack, labels, err := stackInput(cmd)
	if err != nil {
		return err
	}
	ann, err := corcluster.ConsensusCluster(cmd.Context(), stack, labels, cfg.consensusConfig())
	if err != nil {
		return err
	}
	return writeJSON(consensusOutput{
		Labels:  labels,
		Method:  cfg.Method,
		Kind:    cfg.Kind,
		Linkage: ann.Rows(),
	})
}
