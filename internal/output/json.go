package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/klytics/thunderbolt/cmd/version"
)

// Exit codes for consistent error reporting.
const (
	ExitOK          = 0 // success
	ExitUserError   = 1 // bad flags, missing file, invalid config
	ExitSystemError = 2 // store failure, IO error
)

// JSONResult is the standard JSON output envelope for all commands.
type JSONResult struct {
	OK      bool   `json:"ok"`
	Command string `json:"command"`
	Version string `json:"version"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// PrintJSON writes a success envelope to w.
func PrintJSON(w io.Writer, cmd string, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(JSONResult{
		OK:      true,
		Command: cmd,
		Version: version.Version,
		Data:    data,
	})
}

// PrintJSONError writes an error envelope to w.
func PrintJSONError(w io.Writer, cmd string, err error, code int) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(JSONResult{
		OK:      false,
		Command: cmd,
		Version: version.Version,
		Error:   err.Error(),
		Code:    code,
	}); encErr != nil {
		return fmt.Errorf("could not encode JSON error: %w", encErr)
	}
	return nil
}
