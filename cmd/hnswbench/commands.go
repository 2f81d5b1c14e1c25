package main

import (
	"fmt"
	"strconv"

	"github.com/23skdu/hnswbench/internal/dataset"
	"github.com/23skdu/hnswbench/internal/errors"
	"github.com/23skdu/hnswbench/internal/harness"
	"github.com/23skdu/hnswbench/internal/index"
	"github.com/spf13/cobra"
)

// positiveInt parses a positional argument that must be at least 1.
func positiveInt(name, s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.NewInvalidArgument("parse_args", fmt.Sprintf("%s: %q is not an integer", name, s))
	}
	if v < 1 {
		return 0, errors.NewInvalidArgument("parse_args", fmt.Sprintf("%s must be positive, got %d", name, v))
	}
	return v, nil
}

func newBuildCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "build <embeddings.bin> <ids.bin> <dim> <M> <efConstruction> <ip|l2> <output> <threads>",
		Short: "Build and save an index from a vector file and its id file",
		Args:  cobra.ExactArgs(8),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec := harness.BuildSpec{
				VectorPath: args[0],
				IDPath:     args[1],
				IndexPath:  args[6],
			}
			var err error
			if spec.Dim, err = positiveInt("dim", args[2]); err != nil {
				return err
			}
			if spec.M, err = positiveInt("M", args[3]); err != nil {
				return err
			}
			if spec.EfConstruction, err = positiveInt("efConstruction", args[4]); err != nil {
				return err
			}
			if spec.Metric, err = index.ParseMetric(args[5]); err != nil {
				return err
			}
			if spec.Threads, err = positiveInt("threads", args[7]); err != nil {
				return err
			}

			if _, err := harness.Build(cmd.Context(), a.options(), spec); err != nil {
				a.logger.Error().Err(err).Msg("build failed")
				return err
			}
			return nil
		},
	}
}

func newQueryCmd(a *app) *cobra.Command {
	var sequential bool
	var metric string

	cmd := &cobra.Command{
		Use:   "query <index.bin> <queries.bin> <query_ids.bin> <dim> <k> <ef> <threads>",
		Short: "Run every query against a saved index and report latency percentiles",
		Args:  cobra.ExactArgs(7),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec := harness.QuerySpec{
				IndexPath:  args[0],
				QueryPath:  args[1],
				IDPath:     args[2],
				Sequential: sequential,
			}
			var err error
			if spec.Dim, err = positiveInt("dim", args[3]); err != nil {
				return err
			}
			if spec.K, err = positiveInt("k", args[4]); err != nil {
				return err
			}
			if spec.EfSearch, err = positiveInt("ef", args[5]); err != nil {
				return err
			}
			if spec.Threads, err = positiveInt("threads", args[6]); err != nil {
				return err
			}
			if metric != "" {
				if spec.Metric, err = index.ParseMetric(metric); err != nil {
					return err
				}
			}

			if _, err := harness.Query(cmd.Context(), a.options(), spec); err != nil {
				a.logger.Error().Err(err).Msg("query run failed")
				return err
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&sequential, "sequential", false, "Run all queries on one goroutine (baseline)")
	cmd.Flags().StringVar(&metric, "metric", "", "Override the index metric (l2 or ip); queries are normalized for ip")
	return cmd
}

func newGenCmd(a *app) *cobra.Command {
	var seed uint64

	cmd := &cobra.Command{
		Use:   "gen <vectors.bin> <ids.bin> <count> <dim>",
		Short: "Generate a synthetic uniform dataset with sequential ids",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			count, err := positiveInt("count", args[2])
			if err != nil {
				return err
			}
			dim, err := positiveInt("dim", args[3])
			if err != nil {
				return err
			}

			ds := dataset.Synthetic(count, dim, seed)
			if err := ds.Write(args[0], args[1]); err != nil {
				a.logger.Error().Err(err).Msg("cannot write dataset")
				return err
			}
			a.logger.Info().
				Str("vectors", args[0]).
				Str("ids", args[1]).
				Int("count", count).
				Int("dim", dim).
				Uint64("seed", seed).
				Msg("synthetic dataset written")
			return nil
		},
	}
	cmd.Flags().Uint64Var(&seed, "seed", dataset.DefaultSeed, "Random seed")
	return cmd
}
