package models

// ManifestEntry is one row of the archive index, newest first.
type ManifestEntry struct {
	Archive      string `json:"archive"`
	DisplayDate  string `json:"displayDate"`
	Session      string `json:"session"`
	Evaluation   string `json:"evaluation"`
	Headline     string `json:"headline"`
	ShortSummary string `json:"shortSummary"`
}
