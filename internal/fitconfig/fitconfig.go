// Package fitconfig reads a fit configuration file and resolves it into the
// observables, cuts, systematics and signal requests the model is built from.
package fitconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"sxfit/domain/core"
	"sxfit/domain/model"
	"sxfit/internal/catalog"

	"gopkg.in/yaml.v3"
)

// FitOptions are the settings of the outer fit driver, carried through for
// callers and the summary.
type FitOptions struct {
	Experiments    int
	Steps          int
	BurninFraction float64
	OutputFile     string
	DebugMode      bool
}

// Config is a fully resolved fit configuration. Its catalog is frozen.
type Config struct {
	Experiment  model.Experiment
	Fit         FitOptions
	Catalog     *catalog.Catalog
	Observables []model.Observable
	Cuts        []model.Observable
	Systematics []model.Systematic
	Signals     []model.SignalRequest
	// DefaultFields names the columns of headerless tabular files.
	DefaultFields []string
	Hash          core.ConfigHash
}

// Load reads and resolves the configuration at path. Files ending in .json
// are decoded as JSON, everything else as YAML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, core.NewConfigError(path, err.Error())
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return ParseJSON(data)
	}
	return Parse(data)
}

// Parse decodes a YAML configuration and resolves it.
func Parse(data []byte) (*Config, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, core.NewConfigError("yaml", err.Error())
	}
	return resolve(&doc, data)
}

// ParseJSON decodes a JSON configuration and resolves it.
func ParseJSON(data []byte) (*Config, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, core.NewConfigError("json", err.Error())
	}
	return resolve(&doc, data)
}

func resolve(doc *document, raw []byte) (*Config, error) {
	cfg := &Config{
		Catalog:       catalog.New(),
		DefaultFields: doc.PDFs.Fields,
		Hash:          core.NewConfigHash(raw),
	}

	if doc.Experiment.LiveTime == nil {
		return nil, core.NewConfigError("experiment.live_time", "required")
	}
	cfg.Experiment = model.Experiment{
		LiveTime:       *doc.Experiment.LiveTime,
		Confidence:     doc.Experiment.Confidence,
		EfficiencyCorr: 1,
	}
	if doc.Experiment.EfficiencyCorr != nil {
		cfg.Experiment.EfficiencyCorr = *doc.Experiment.EfficiencyCorr
	}

	cfg.Fit = FitOptions{
		Experiments:    doc.Fit.Experiments,
		Steps:          doc.Fit.Steps,
		BurninFraction: 0.1,
		OutputFile:     "fit_spectrum",
		DebugMode:      doc.Fit.DebugMode,
	}
	if doc.Fit.BurninFraction != nil {
		cfg.Fit.BurninFraction = *doc.Fit.BurninFraction
	}
	if doc.Fit.OutputFile != nil {
		cfg.Fit.OutputFile = *doc.Fit.OutputFile
	}

	var err error
	if cfg.Observables, err = lookupObservables(doc, doc.Fit.Observables, "fit.observables", true); err != nil {
		return nil, err
	}
	if len(cfg.Observables) == 0 {
		return nil, core.NewConfigError("fit.observables", "at least one observable is required")
	}
	if cfg.Cuts, err = lookupObservables(doc, doc.Fit.Cuts, "fit.cuts", false); err != nil {
		return nil, err
	}
	if cfg.Systematics, err = lookupSystematics(doc, doc.Fit.Systematics); err != nil {
		return nil, err
	}

	if err := cfg.buildCatalog(); err != nil {
		return nil, err
	}

	if cfg.Signals, err = cfg.resolveSignals(doc); err != nil {
		return nil, err
	}
	return cfg, nil
}

func lookupObservables(doc *document, names []string, key string, binned bool) ([]model.Observable, error) {
	out := make([]model.Observable, 0, len(names))
	for _, name := range names {
		od, ok := doc.PDFs.Observables[name]
		if !ok {
			return nil, core.NewConfigError(key, fmt.Sprintf("observable %q is not defined under pdfs.observables", name))
		}
		o := model.Observable{
			Name:  name,
			Title: od.Title,
			Field: od.Field,
			Units: od.Units,
			Bins:  od.Bins,
			Lower: od.Min,
			Upper: od.Max,
		}
		if od.Exclude != nil {
			if len(od.Exclude) != 2 {
				return nil, core.NewConfigError(name, "exclude must be [min, max]")
			}
			o.Exclude, o.ExcludeMin, o.ExcludeMax = true, od.Exclude[0], od.Exclude[1]
		}

		check := o.Validate
		if binned {
			check = o.ValidateBinned
		}
		if err := check(); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

func lookupSystematics(doc *document, names []string) ([]model.Systematic, error) {
	out := make([]model.Systematic, 0, len(names))
	for _, name := range names {
		sd, ok := doc.PDFs.Systematics[name]
		if !ok {
			return nil, core.NewConfigError("fit.systematics", fmt.Sprintf("systematic %q is not defined under pdfs.systematics", name))
		}
		kind, err := model.ParseSystematicKind(name, sd.Type)
		if err != nil {
			return nil, err
		}
		s := model.Systematic{
			Name:            name,
			Title:           sd.Title,
			Kind:            kind,
			ObservableField: sd.ObservableField,
			Mean:            sd.Mean,
			Sigma:           sd.Sigma,
			Fixed:           sd.Fixed,
		}
		if kind == model.ResolutionScale {
			s.TruthField = sd.TruthField
		}
		if err := s.Validate(); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// buildCatalog indexes observable fields, then cut fields; systematics may
// only perturb fields already indexed, and resolution truth fields are
// appended. The catalog is frozen afterwards.
func (c *Config) buildCatalog() error {
	for i := range c.Observables {
		idx, err := c.Catalog.ResolveOrAppend(c.Observables[i].Field)
		if err != nil {
			return err
		}
		c.Observables[i].FieldIndex = idx
	}
	for i := range c.Cuts {
		idx, err := c.Catalog.ResolveOrAppend(c.Cuts[i].Field)
		if err != nil {
			return err
		}
		c.Cuts[i].FieldIndex = idx
	}
	for i := range c.Systematics {
		s := &c.Systematics[i]
		idx, err := c.Catalog.Lookup(s.ObservableField)
		if err != nil {
			return fmt.Errorf("systematic %s: %w", s.Name, err)
		}
		s.ObservableFieldIndex = idx
		if s.Kind != model.ResolutionScale {
			continue
		}
		if s.TruthFieldIndex, err = c.Catalog.ResolveOrAppend(s.TruthField); err != nil {
			return err
		}
	}
	c.Catalog.Freeze()
	return nil
}

// resolveSignals builds the requests for every signal listed in fit.signals,
// in name order. Rates and constraints are scaled by the exposure.
func (c *Config) resolveSignals(doc *document) ([]model.SignalRequest, error) {
	wanted := make(map[string]bool, len(doc.Fit.Signals))
	for _, name := range doc.Fit.Signals {
		if _, ok := doc.Signals[name]; !ok {
			return nil, core.NewConfigError("fit.signals", fmt.Sprintf("signal %q is not defined under signals", name))
		}
		wanted[name] = true
	}

	exposure := c.Experiment.Exposure()
	var out []model.SignalRequest
	for _, name := range sortedKeys(doc.Signals) {
		if !wanted[name] {
			continue
		}
		sd := doc.Signals[name]
		req := model.SignalRequest{
			Contribution: model.Contribution{
				Name:     name,
				Title:    sd.Title,
				Category: sd.Category,
				Sigma:    sd.Constraint * exposure,
				Files:    sd.Files,
			},
			Chain: sd.Chain == nil || *sd.Chain,
		}
		if req.Title == "" {
			req.Title = name
		}
		if sd.Rate != nil {
			req.NExpected = *sd.Rate * exposure
			req.HasRate = true
		}

		if len(sd.PDFs) == 0 {
			if !req.HasRate {
				return nil, core.NewConfigError("signals."+name, "rate is required")
			}
			if len(sd.Files) == 0 {
				return nil, core.NewConfigError("signals."+name, "files are required")
			}
			out = append(out, req)
			continue
		}

		for _, part := range sortedKeys(sd.PDFs) {
			pd := sd.PDFs[part]
			if pd.Rate == nil {
				return nil, core.NewConfigError("signals."+name+".pdfs."+part, "rate is required")
			}
			if len(pd.Files) == 0 {
				return nil, core.NewConfigError("signals."+name+".pdfs."+part, "files are required")
			}
			title := pd.Title
			if title == "" {
				title = part
			}
			category := pd.Category
			if category == "" {
				category = sd.Category
			}
			req.Parts = append(req.Parts, model.Contribution{
				Name:      part,
				Title:     title,
				Category:  category,
				NExpected: *pd.Rate * exposure,
				Sigma:     pd.Constraint * exposure,
				Files:     pd.Files,
			})
		}
		out = append(out, req)
	}
	return out, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
