package model

// Experiment holds the exposure parameters applied to every configured rate.
type Experiment struct {
	LiveTime       float64 `json:"live_time"`       // Years
	Confidence     float64 `json:"confidence"`      // Confidence level for limits
	EfficiencyCorr float64 `json:"efficiency_corr"` // External efficiency correction, default 1
}

// Exposure is the factor converting a configured rate into expected events.
func (e Experiment) Exposure() float64 {
	return e.LiveTime * e.EfficiencyCorr
}

// Contribution is one event-sample-backed PDF request: a top-level signal
// without sub-pdfs, or one entry of a signal's pdf group.
type Contribution struct {
	Name      string   `json:"name"`
	Title     string   `json:"title"`
	Category  string   `json:"category"`
	NExpected float64  `json:"nexpected"` // Rate already multiplied by exposure
	Sigma     float64  `json:"sigma"`     // Constraint already multiplied by exposure
	Files     []string `json:"files"`
}

// SignalRequest is one configured signal after parsing.
//
// Exactly one of Files (via Contribution) or Parts is populated. When Parts
// is set and Chain is true, the parts are combined into a single model;
// otherwise each part becomes an independent signal.
type SignalRequest struct {
	Contribution
	Chain   bool           `json:"chain"`
	HasRate bool           `json:"has_rate"` // Rate explicitly configured on a chained group
	Parts   []Contribution `json:"parts,omitempty"`
}

// IsGroup reports whether the signal is declared through sub-pdfs.
func (r SignalRequest) IsGroup() bool {
	return len(r.Parts) > 0
}
