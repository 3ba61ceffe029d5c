package requests

// ScanOptions tunes a single analyze call. The zero value gives the
// default behavior: cache on, pipeline runs every scanner.
type ScanOptions struct {
	SkipCache bool `json:"skip_cache,omitempty"`
	FailFast  bool `json:"fail_fast,omitempty"`
}

// AnalyzeOutputRequest scans a model response. The prompt is optional
// context; only the output is scanned.
type AnalyzeOutputRequest struct {
	Prompt  string      `json:"prompt"`
	Output  string      `json:"output" binding:"required"`
	Options ScanOptions `json:"options,omitempty"`
}

// AnalyzePromptRequest scans the prompt itself before it reaches a model.
type AnalyzePromptRequest struct {
	Prompt  string      `json:"prompt" binding:"required"`
	Options ScanOptions `json:"options,omitempty"`
}

// BatchAnalyzeRequest submits many texts as one asynchronous job.
type BatchAnalyzeRequest struct {
	Texts   []string    `json:"texts" binding:"required,min=1"`
	Options ScanOptions `json:"options,omitempty"`
}
