// Package corcluster clusters binary (presence/absence) random variables
// using pairwise Pearson correlation as the similarity between variables.
//
// Variables are merged by average linkage. Before every merge a Wald test
// with bootstrapped standard errors checks whether the closest pair of
// clusters is distinguishable from every other pair; when it is not, merging
// stops and the result is a forest rather than a single tree.
//
// Basic usage:
//
//	cfg := corcluster.DefaultConfig()
//	cfg.Seed = 7
//	result, err := corcluster.Cluster(ctx, data, labels, cfg)
//	// result.Linkage is in scipy format: [left, right, correlation, size]
//	// result.Components() lists one Split per connected component
//
// Bootstrap stacks can be computed once and clustered many times:
//
//	stack, err := corcluster.BootstrapCorrelations(ctx, data, corcluster.BootstrapConfig{Replicates: 500})
//	result, err := corcluster.ClusterStack(stack, labels, cfg)
//
// # Consensus
//
// ConsensusCluster fits one tree per stack row with a standard linkage
// routine and annotates every merge of the row-0 tree with the fraction of
// replicate trees that reproduce it:
//
//	annotated, err := corcluster.ConsensusCluster(ctx, stack, labels, corcluster.DefaultConsensusConfig())
//	// annotated.Rows()[k][4] is the confidence of merge k
//
// # Estimators
//
// Two correlation estimators coexist. FlatPearson, used on raw observation
// rows, clamps to [-1, 1] and keeps the sign. ContingencyTable.Correlation,
// used by ClusterTable, clamps to [0, 1] and treats negative correlation as
// no similarity at all. The two produce different merge orders on data with
// negative correlations.
package corcluster
