package fitconfig

import (
	"fmt"
	"io"
)

func constraint(v float64) string {
	if v == 0 {
		return "none"
	}
	return fmt.Sprintf("%g", v)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// Summary writes a human-readable description of the configuration.
func (c *Config) Summary(w io.Writer) {
	fmt.Fprintf(w, "Fit:\n")
	fmt.Fprintf(w, "  Fake experiments: %d\n", c.Fit.Experiments)
	fmt.Fprintf(w, "  MCMC steps: %d\n", c.Fit.Steps)
	fmt.Fprintf(w, "  Burn-in fraction: %g\n", c.Fit.BurninFraction)
	fmt.Fprintf(w, "  Output plot: %s\n", c.Fit.OutputFile)

	fmt.Fprintf(w, "Experiment:\n")
	fmt.Fprintf(w, "  Live time: %g y\n", c.Experiment.LiveTime)
	fmt.Fprintf(w, "  Confidence level: %g\n", c.Experiment.Confidence)
	fmt.Fprintf(w, "  Efficiency correction: %g\n", c.Experiment.EfficiencyCorr)

	fmt.Fprintf(w, "Fields:\n")
	for i, name := range c.Catalog.Names() {
		fmt.Fprintf(w, "  %d: %s\n", i, name)
	}

	fmt.Fprintf(w, "Cuts:\n")
	for _, o := range c.Cuts {
		fmt.Fprintf(w, "  %s\n", o.Name)
		fmt.Fprintf(w, "    Title: %q\n", o.Title)
		fmt.Fprintf(w, "    Lower bound: %g\n", o.Lower)
		fmt.Fprintf(w, "    Upper bound: %g\n", o.Upper)
	}

	fmt.Fprintf(w, "Observables:\n")
	for _, o := range c.Observables {
		fmt.Fprintf(w, "  %s\n", o.Name)
		fmt.Fprintf(w, "    Title: %q\n", o.Title)
		fmt.Fprintf(w, "    Lower bound: %g\n", o.Lower)
		fmt.Fprintf(w, "    Upper bound: %g\n", o.Upper)
		fmt.Fprintf(w, "    Bins: %d\n", o.Bins)
		if o.Exclude {
			fmt.Fprintf(w, "    Excluded: [%g, %g]\n", o.ExcludeMin, o.ExcludeMax)
		}
	}

	fmt.Fprintf(w, "Signals:\n")
	for _, s := range c.Signals {
		fmt.Fprintf(w, "  %s\n", s.Name)
		fmt.Fprintf(w, "    Title: %q\n", s.Title)
		if s.HasRate {
			fmt.Fprintf(w, "    Expectation: %g\n", s.NExpected)
		}
		fmt.Fprintf(w, "    Constraint: %s\n", constraint(s.Sigma))
		if s.IsGroup() {
			fmt.Fprintf(w, "    Chained: %s\n", yesNo(s.Chain))
			for _, p := range s.Parts {
				fmt.Fprintf(w, "    - %s: expectation %g, %d file(s)\n", p.Name, p.NExpected, len(p.Files))
			}
		}
	}

	if len(c.Systematics) > 0 {
		fmt.Fprintf(w, "Systematics:\n")
		for _, s := range c.Systematics {
			fmt.Fprintf(w, "  %s\n", s.Name)
			fmt.Fprintf(w, "    Title: %q\n", s.Title)
			fmt.Fprintf(w, "    Type: %s\n", s.Kind)
			fmt.Fprintf(w, "    Observable: %s\n", s.ObservableField)
			if s.TruthField != "" {
				fmt.Fprintf(w, "    Truth: %s\n", s.TruthField)
			}
			fmt.Fprintf(w, "    Mean: %g\n", s.Mean)
			fmt.Fprintf(w, "    Constraint: %s\n", constraint(s.Sigma))
			fmt.Fprintf(w, "    Fixed: %s\n", yesNo(s.Fixed))
		}
	}
}
