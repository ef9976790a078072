package core

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/varalys/trello-watchman/internal/types"
)

// MarshalFindings writes findings as an indented JSON array. A nil slice is
// written as [] so consumers never see null.
func MarshalFindings(w io.Writer, findings []Finding) error {
	if findings == nil {
		findings = []Finding{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(findings)
}

// UnmarshalFindings decodes a findings array as written by MarshalFindings,
// rejecting entries whose scope or severity is unknown.
func UnmarshalFindings(r io.Reader) ([]Finding, error) {
	var fs []Finding
	if err := json.NewDecoder(r).Decode(&fs); err != nil {
		return nil, fmt.Errorf("decode findings: %w", err)
	}
	for i, f := range fs {
		if !f.Scope.Valid() {
			return nil, fmt.Errorf("finding %d: unknown scope %q", i, f.Scope)
		}
		if _, ok := types.ParseSeverity(string(f.Severity)); !ok {
			return nil, fmt.Errorf("finding %d: unknown severity %q", i, f.Severity)
		}
	}
	return fs, nil
}
