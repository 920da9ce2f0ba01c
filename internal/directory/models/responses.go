package models

// LoadReport summarizes a startup load from the persistence sink.
type LoadReport struct {
	Loaded     int
	Skipped    int
	Rejections []Rejection
	// SourceErr is set when the source was missing, malformed or unreachable
	// and the directory started empty.
	SourceErr error
}

// Rejection describes one record refused during load or check.
type Rejection struct {
	Index  int    `json:"index"`
	ID     string `json:"id"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Health is the body of the health endpoint.
type Health struct {
	Status  string `json:"status"`
	Records int    `json:"records"`
}
