package engine

// Results are closed variants, one per operation, each carrying the fixed
// field set of the wire schema. They marshal directly to the JSON emitted in
// machine-readable mode.

// OpenResult reports the outcome of open.
type OpenResult struct {
	OK  bool   `json:"ok"`
	Op  string `json:"op"`
	Err string `json:"error,omitempty"`
}

// RunResult reports the outcome of run. ExitCode is the remote command's
// exit status; Output is what the command printed, marker line stripped.
type RunResult struct {
	OK       bool   `json:"ok"`
	Op       string `json:"op"`
	ExitCode *int   `json:"exit_code,omitempty"`
	Output   string `json:"output,omitempty"`
	Err      string `json:"error,omitempty"`
}

// LogsResult carries the captured tail of the session's scroll-back buffer.
type LogsResult struct {
	OK     bool   `json:"ok"`
	Op     string `json:"op"`
	Output string `json:"output"`
}

// StatusResult reports channel and session liveness as 0|1 flags.
type StatusResult struct {
	OK      bool   `json:"ok"`
	Op      string `json:"op"`
	Master  int    `json:"master"`
	Session int    `json:"session"`
}

// CloseResult reports the outcome of close.
type CloseResult struct {
	OK bool   `json:"ok"`
	Op string `json:"op"`
}
