package approvals

import (
	"encoding/json"
	"strings"
)

// Config is the typed per-institution approval configuration, parsed
// from the institution's JSONB blob.
type Config struct {
	HLCMode QuorumMode `json:"hlcMode"`
}

// DefaultConfig applies when an institution has no stored config.
var DefaultConfig = Config{HLCMode: QuorumSingle}

// parseApprovalConfig decodes the raw blob into a Config. Absent or
// empty blobs yield the default. An unrecognized hlcMode falls back to
// SINGLE and is reported through the second return value so the caller
// can log it; it is never an error surfaced to the approver.
func parseApprovalConfig(raw []byte) (Config, bool) {
	if len(raw) == 0 {
		return DefaultConfig, true
	}

	var decoded struct {
		HLCMode string `json:"hlcMode"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return DefaultConfig, false
	}

	mode := QuorumMode(strings.ToUpper(strings.TrimSpace(decoded.HLCMode)))
	switch mode {
	case QuorumSingle, QuorumUnanimous, QuorumMajority:
		return Config{HLCMode: mode}, true
	case "":
		return DefaultConfig, true
	}
	return DefaultConfig, false
}
