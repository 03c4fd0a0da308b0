package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"sxfit/adapters/rng"
	"sxfit/adapters/rootio"
	"sxfit/adapters/sqlstore"
	"sxfit/adapters/tabular"
	"sxfit/app"
	"sxfit/internal"
	"sxfit/internal/config"
	"sxfit/internal/errors"
	"sxfit/internal/fitconfig"
	"sxfit/internal/ingest"
	"sxfit/ports"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "sxfit",
		Short:         "Build signal PDFs from event samples and generate pseudo-experiments",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newInspectCmd(),
		newFakeCmd(),
		newListCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error [%s]: %v\n", errors.GetCode(err), err)
		os.Exit(1)
	}
}

// environment holds everything a command needs once the configuration is loaded.
type environment struct {
	settings *config.Config
	fit      *fitconfig.Config
	logger   *internal.Logger
	seed     uint64
}

func loadEnvironment(path string, seedOverride int64) (*environment, error) {
	settings, err := config.Load()
	if err != nil {
		return nil, err
	}
	internal.DefaultLogger.SetLevel(internal.ParseLogLevel(settings.LogLevel))

	fit, err := fitconfig.Load(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load %s", path)
	}
	if fit.Fit.DebugMode && internal.DefaultLogger.GetLevel() < internal.LogLevelDebug {
		internal.DefaultLogger.SetLevel(internal.LogLevelDebug)
	}

	seed := settings.Sampling.Seed
	if seedOverride >= 0 {
		seed = uint64(seedOverride)
	}
	return &environment{settings: settings, fit: fit, logger: internal.DefaultLogger, seed: seed}, nil
}

func (e *environment) service(repo ports.DatasetRepository) *app.FitService {
	sources := ingest.NewSources(
		tabular.NewReader(tabular.WithDefaultFields(e.fit.DefaultFields), tabular.WithLogger(e.logger)),
		rootio.NewReader(e.logger),
	)
	opts := []app.ServiceOption{
		app.WithWorkers(e.settings.Build.Workers),
		app.WithOversampleFactor(e.settings.Sampling.OversampleFactor),
		app.WithSeed(e.seed),
		app.WithLogger(e.logger),
	}
	if repo != nil {
		opts = append(opts, app.WithRepository(repo))
	}
	return app.NewFitService(e.fit, sources, rng.NewSeeded(e.seed), opts...)
}

func (e *environment) openRepository(ctx context.Context) (ports.DatasetRepository, error) {
	repo, err := sqlstore.Open(ctx, e.settings.Storage.Driver, e.settings.Storage.DSN)
	if err != nil {
		return nil, errors.WithCode(errors.CodeStorageError, err)
	}
	if err := repo.Init(ctx); err != nil {
		repo.Close()
		return nil, errors.StorageError("failed to initialize dataset store", err)
	}
	return repo, nil
}

func newInspectCmd() *cobra.Command {
	var build bool

	cmd := &cobra.Command{
		Use:   "inspect [config]",
		Short: "Print the resolved fit configuration and the built signals",
		Long: `Resolve a fit configuration, print its summary and, unless --build=false,
read every event file and print the resulting signal models.

Example: sxfit inspect configs/example.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnvironment(args[0], -1)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			env.fit.Summary(out)
			if !build {
				return nil
			}

			m, err := env.service(nil).BuildSignals(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(out, "Built signals:")
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "  NAME\tCATEGORY\tNEXPECTED\tSIGMA\tEVENTS\tPHYSICAL\tEFFICIENCY\tIN RANGE")
			for i, s := range m.Signals {
				fmt.Fprintf(w, "  %s\t%s\t%.4g\t%.4g\t%.0f\t%.0f\t%.4g\t%.4g\n",
					s.Name, s.Category, s.NExpected, s.Sigma, s.NEvents, s.NPhysical, s.Efficiency, m.State.Norm(0, i))
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&build, "build", true, "Read event files and build the signal models")

	return cmd
}

func newFakeCmd() *cobra.Command {
	var (
		experiments int
		poisson     bool
		persist     bool
		asJSON      bool
		seed        int64
	)

	cmd := &cobra.Command{
		Use:   "fake [config]",
		Short: "Generate pseudo-experiments from the configured signals",
		Long: `Build every configured signal, then draw pseudo-datasets at the systematic means.

Storage is selected by SXFIT_DB_DRIVER (sqlite|postgres) and SXFIT_DB_DSN.

Example: sxfit fake configs/example.yaml --experiments 100 --poisson --persist`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			env, err := loadEnvironment(args[0], seed)
			if err != nil {
				return err
			}
			if experiments <= 0 {
				experiments = env.fit.Fit.Experiments
			}

			var repo ports.DatasetRepository
			if persist {
				if repo, err = env.openRepository(ctx); err != nil {
					return err
				}
				defer repo.Close()
			}

			svc := env.service(repo)
			m, err := svc.BuildSignals(ctx)
			if err != nil {
				return err
			}
			res, err := svc.GenerateFake(ctx, m, app.FakeRequest{
				Experiments: experiments,
				Poisson:     poisson,
				Persist:     persist,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			fmt.Fprintf(out, "Generated %d pseudo-experiments in %dms (seed %d)\n", len(res.Datasets), res.RuntimeMs, env.seed)
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "  SIGNAL\tEXPECTED\tMEAN\tSTDDEV\tMIN\tMAX")
			for _, s := range res.Summary {
				fmt.Fprintf(w, "  %s\t%.4g\t%.4g\t%.4g\t%.0f\t%.0f\n", s.Signal, s.Expected, s.Mean, s.StdDev, s.Min, s.Max)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&experiments, "experiments", 0, "Number of pseudo-experiments (default: fit.experiments)")
	cmd.Flags().BoolVar(&poisson, "poisson", false, "Poisson-fluctuate the event counts")
	cmd.Flags().BoolVar(&persist, "persist", false, "Store the datasets in the configured database")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the datasets as JSON")
	cmd.Flags().Int64Var(&seed, "seed", -1, "Random seed (default: SXFIT_SEED)")

	return cmd
}

func newListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list [config]",
		Short: "List stored pseudo-experiments generated from a configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			env, err := loadEnvironment(args[0], -1)
			if err != nil {
				return err
			}
			repo, err := env.openRepository(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			list, err := env.service(repo).ListDatasets(ctx, limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tEXPERIMENT\tOBSERVED\tPOISSON\tSEED")
			for _, d := range list {
				fmt.Fprintf(w, "%s\t%d\t%d\t%t\t%d\n", d.ID, d.Experiment, d.Observed, d.Poisson, uint64(d.Seed))
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum number of datasets to list")

	return cmd
}
