package fitconfig

// Raw configuration documents, decoded from YAML or JSON. Optional keys with
// non-zero defaults are pointers so an absent key can be told apart.

type document struct {
	Experiment experimentDoc        `yaml:"experiment" json:"experiment"`
	PDFs       pdfsDoc              `yaml:"pdfs" json:"pdfs"`
	Fit        fitDoc               `yaml:"fit" json:"fit"`
	Signals    map[string]signalDoc `yaml:"signals" json:"signals"`
}

type experimentDoc struct {
	LiveTime       *float64 `yaml:"live_time" json:"live_time"`
	Confidence     float64  `yaml:"confidence" json:"confidence"`
	EfficiencyCorr *float64 `yaml:"efficiency_corr" json:"efficiency_corr"`
}

type pdfsDoc struct {
	// Fields names the columns of tabular files that carry no header row.
	Fields      []string                 `yaml:"hdf5_fields" json:"hdf5_fields"`
	Observables map[string]observableDoc `yaml:"observables" json:"observables"`
	Systematics map[string]systematicDoc `yaml:"systematics" json:"systematics"`
}

type observableDoc struct {
	Title   string    `yaml:"title" json:"title"`
	Field   string    `yaml:"field" json:"field"`
	Bins    int       `yaml:"bins" json:"bins"`
	Min     float64   `yaml:"min" json:"min"`
	Max     float64   `yaml:"max" json:"max"`
	Units   string    `yaml:"units" json:"units"`
	Exclude []float64 `yaml:"exclude" json:"exclude"`
}

type systematicDoc struct {
	Title           string  `yaml:"title" json:"title"`
	ObservableField string  `yaml:"observable_field" json:"observable_field"`
	TruthField      string  `yaml:"truth_field" json:"truth_field"`
	Type            string  `yaml:"type" json:"type"`
	Mean            float64 `yaml:"mean" json:"mean"`
	Sigma           float64 `yaml:"sigma" json:"sigma"`
	Fixed           bool    `yaml:"fixed" json:"fixed"`
}

type fitDoc struct {
	Experiments    int      `yaml:"experiments" json:"experiments"`
	Steps          int      `yaml:"steps" json:"steps"`
	BurninFraction *float64 `yaml:"burnin_fraction" json:"burnin_fraction"`
	OutputFile     *string  `yaml:"output_file" json:"output_file"`
	DebugMode      bool     `yaml:"debug_mode" json:"debug_mode"`
	Signals        []string `yaml:"signals" json:"signals"`
	Observables    []string `yaml:"observables" json:"observables"`
	Cuts           []string `yaml:"cuts" json:"cuts"`
	Systematics    []string `yaml:"systematics" json:"systematics"`
}

type signalDoc struct {
	Title      string               `yaml:"title" json:"title"`
	Category   string               `yaml:"category" json:"category"`
	Rate       *float64             `yaml:"rate" json:"rate"`
	Constraint float64              `yaml:"constraint" json:"constraint"`
	Files      []string             `yaml:"files" json:"files"`
	Chain      *bool                `yaml:"chain" json:"chain"`
	PDFs       map[string]signalDoc `yaml:"pdfs" json:"pdfs"`
}
