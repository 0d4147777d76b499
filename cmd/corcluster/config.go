package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/yiyanshou/corcluster"
)

// fileConfig mirrors the YAML config file. Every field can also be set by
// the flag of the same name, which takes precedence.
type fileConfig struct {
	Alpha      float64 `yaml:"alpha"`
	Replicates int     `yaml:"replicates"`
	Stop       string  `yaml:"stop"`
	Metric     bool    `yaml:"metric"`
	Bonferroni bool    `yaml:"bonferroni"`
	Workers    int     `yaml:"workers"`
	Seed       uint64  `yaml:"seed"`

	MinPrevalence float64 `yaml:"min_prevalence"`
	MaxPrevalence float64 `yaml:"max_prevalence"`

	Method string `yaml:"method"`
	Kind   string `yaml:"kind"`

	Sort       string `yaml:"sort"`
	Descending bool   `yaml:"descending"`
}

func defaultFileConfig() fileConfig {
	def := corcluster.DefaultConfig()
	cons := corcluster.DefaultConsensusConfig()
	return fileConfig{
		Alpha:         def.Alpha,
		Replicates:    def.Replicates,
		Stop:          "any",
		MinPrevalence: 0.01,
		MaxPrevalence: 0.99,
		Method:        string(cons.Method),
		Kind:          string(cons.Kind),
		Sort:          string(corcluster.SortBySize),
		Descending:    true,
	}
}

// decodeFileConfig reads YAML from r over base. Unknown keys are rejected.
func decodeFileConfig(r io.Reader, base fileConfig) (fileConfig, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&base); err != nil && !errors.Is(err, io.EOF) {
		return base, fmt.Errorf("failed to parse the config file: %w", err)
	}
	return base, nil
}

// applyConfig loads --config into cfg, then re-applies the flags that were
// set explicitly so they override the file.
func applyConfig(cmd *cobra.Command) error {
	if configPath == "" {
		return nil
	}
	changed := map[string]string{}
	cmd.Flags().Visit(func(f *pflag.Flag) {
		changed[f.Name] = f.Value.String()
	})

	f, err := os.Open(configPath)
	if err != nil {
		return fmt.Errorf("failed to read the config file: %w", err)
	}
	defer f.Close()
	if cfg, err = decodeFileConfig(f, cfg); err != nil {
		return err
	}

	for name, value := range changed {
		if err := cmd.Flags().Set(name, value); err != nil {
			return err
		}
	}
	log.WithField("path", configPath).Debug("config loaded")
	return nil
}

func addBootstrapFlags(fs *pflag.FlagSet) {
	fs.IntVar(&cfg.Replicates, "replicates", cfg.Replicates, "number of bootstrap replicates")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "concurrent workers (0 = number of CPUs)")
	fs.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "random seed for resampling")
	fs.Float64Var(&cfg.MinPrevalence, "min-prevalence", cfg.MinPrevalence, "drop variables present in fewer rows than this fraction")
	fs.Float64Var(&cfg.MaxPrevalence, "max-prevalence", cfg.MaxPrevalence, "drop variables present in more rows than this fraction")
}

func addClusterFlags(fs *pflag.FlagSet) {
	fs.Float64Var(&cfg.Alpha, "alpha", cfg.Alpha, "significance level of the stopping test")
	fs.StringVar(&cfg.Stop, "stop", cfg.Stop, `stopping rule: "any", "failures:K", "quantile:Q" or "mean"`)
	fs.BoolVar(&cfg.Metric, "metric", cfg.Metric, "cluster on sqrt(2(1-rho)) distances")
	fs.BoolVar(&cfg.Bonferroni, "bonferroni", cfg.Bonferroni, "divide alpha by the number of variables")
	fs.StringVar(&cfg.Sort, "sort", cfg.Sort, "order components by size, min, max or mean")
	fs.BoolVar(&cfg.Descending, "desc", cfg.Descending, "sort components in descending order")
}

func addConsensusFlags(fs *pflag.FlagSet) {
	fs.StringVar(&cfg.Method, "method", cfg.Method, "linkage method: single, complete, average or weighted")
	fs.StringVar(&cfg.Kind, "kind", cfg.Kind, "consensus kind: flat or merge")
	fs.BoolVar(&cfg.Metric, "metric", cfg.Metric, "fit on sqrt(2(1-rho)) distances")
}

// parseStopRule parses the --stop flag.
func parseStopRule(s string) (corcluster.StopRule, error) {
	name, arg, hasArg := strings.Cut(s, ":")
	switch {
	case name == "" || name == "any":
		return corcluster.MaxFailures(0), nil
	case name == "mean" && !hasArg:
		return corcluster.MeanRule(), nil
	case name == "failures" && hasArg:
		k, err := strconv.Atoi(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid stop rule %q: %w", s, err)
		}
		return corcluster.MaxFailures(k), nil
	case name == "quantile" && hasArg:
		q, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid stop rule %q: %w", s, err)
		}
		return corcluster.QuantileRule(q), nil
	}
	return nil, fmt.Errorf("invalid stop rule %q", s)
}

func (c fileConfig) bootstrapConfig() corcluster.BootstrapConfig {
	return corcluster.BootstrapConfig{
		Replicates: c.Replicates,
		Workers:    c.Workers,
		Seed:       c.Seed,
		Logger:     log,
	}
}

func (c fileConfig) clusterConfig() (corcluster.Config, error) {
	stop, err := parseStopRule(c.Stop)
	if err != nil {
		return corcluster.Config{}, err
	}
	return corcluster.Config{
		Alpha:      c.Alpha,
		Replicates: c.Replicates,
		Stop:       stop,
		Metric:     c.Metric,
		Bonferroni: c.Bonferroni,
		Workers:    c.Workers,
		Seed:       c.Seed,
		Logger:     log,
	}, nil
}

func (c fileConfig) consensusConfig() corcluster.ConsensusConfig {
	return corcluster.ConsensusConfig{
		Method:  corcluster.LinkageMethod(c.Method),
		Kind:    corcluster.ConsensusKind(c.Kind),
		Metric:  c.Metric,
		Workers: c.Workers,
		Logger:  log,
	}
}
