package accuracy

// Result is the outcome of a single scoring run. Series holds one
// per-frame form verdict (0 or 1) for every row of the uploaded CSV.
type Result struct {
	JobID    string  `json:"jobId"`
	Exercise string  `json:"exercise"`
	Score    float64 `json:"score"`
	Series   []int   `json:"series"`
}

// scriptOutput is what the scoring script prints to stdout
type scriptOutput struct {
	OverallAccuracy       float64 `json:"overall_accuracy"`
	TimeSeriesPredictions []int   `json:"time_series_predictions"`
}
