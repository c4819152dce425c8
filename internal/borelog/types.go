// Package borelog parses borehole log documents exported as CSV or XLSX.
// Two dialects are recognized: structured exports with machine-friendly
// column names, and template-style exports where metadata is scattered over
// the rows above a human-readable stratum table. Parsing is pure: the
// package never performs I/O against storage.
package borelog

// Sample is one sampling or testing event inside a stratum.
type Sample struct {
	SampleEventType   *string    `json:"sample_event_type"`
	SampleEventDepthM *float64   `json:"sample_event_depth_m"`
	RunLengthM        *float64   `json:"run_length_m"`
	Penetration15CM   []*float64 `json:"penetration_15cm"`
	NValue            *string    `json:"n_value"`
	TotalCoreLengthCM *float64   `json:"total_core_length_cm"`
	TCRPercent        *float64   `json:"tcr_percent"`
	RQDLengthCM       *float64   `json:"rqd_length_cm"`
	RQDPercent        *float64   `json:"rqd_percent"`
	Remarks           *string    `json:"remarks"`
}

// Stratum is one soil or rock layer with its attached samples.
type Stratum struct {
	Description         string    `json:"description"`
	DepthFrom           *float64  `json:"depth_from"`
	DepthTo             *float64  `json:"depth_to"`
	Thickness           *float64  `json:"thickness"`
	ColourOfReturnWater *string   `json:"colour_of_return_water"`
	WaterLoss           *string   `json:"water_loss"`
	DiameterOfBorehole  *string   `json:"diameter_of_borehole"`
	Remarks             *string   `json:"remarks"`
	TCRPercent          *float64  `json:"tcr_percent"`
	RQDPercent          *float64  `json:"rqd_percent"`
	Samples             []*Sample `json:"samples"`
}

// Metadata is the borehole header block. Keys differ slightly between the
// two dialects, so it stays a plain map for JSON round-tripping.
type Metadata map[string]any

// RowReader yields one row of cell strings at a time. io.EOF ends the
// sequence.
type RowReader interface {
	Next() ([]string, error)
}
