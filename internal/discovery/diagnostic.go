// SPDX-License-Identifier: MPL-2.0

package discovery

const (
	// SeverityWarning indicates a recoverable discovery warning.
	SeverityWarning Severity = "warning"
	// SeverityError indicates a non-fatal discovery error diagnostic.
	SeverityError Severity = "error"

	// CodeManifestSkipped is reported for a Cargo.toml that failed to parse.
	CodeManifestSkipped = "manifest_parse_skipped"
	// CodeScanRootUnreadable is reported when the scan root cannot be opened.
	CodeScanRootUnreadable = "scan_root_unreadable"
	// CodeDiscoveryCancelled is reported when the context ends mid-walk.
	CodeDiscoveryCancelled = "discovery_cancelled"
)

type (
	// Severity represents discovery diagnostic severity.
	Severity string

	// Diagnostic is a structured, non-fatal discovery finding returned to
	// callers instead of being written to stderr.
	Diagnostic struct {
		Severity Severity `json:"severity" yaml:"severity"`
		// Code is a machine-readable identifier (e.g., "manifest_parse_skipped").
		Code    string `json:"code" yaml:"code"`
		Message string `json:"message" yaml:"message"`
		// Path is the file the diagnostic refers to (optional).
		Path  string `json:"path,omitempty" yaml:"path,omitempty"`
		Cause error  `json:"-" yaml:"-"`
	}
)

func newDiagnostic(severity Severity, code, message, path string, cause error) Diagnostic {
	return Diagnostic{Severity: severity, Code: code, Message: message, Path: path, Cause: cause}
}
