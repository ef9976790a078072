package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/varalys/trello-watchman/internal/types"
)

type sarif struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version,omitempty"`
	InformationURI string      `json:"informationUri,omitempty"`
	Rules          []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string       `json:"id"`
	ShortDescription sarifMessage `json:"shortDescription"`
}

type sarifResult struct {
	RuleID     string            `json:"ruleId"`
	RuleIndex  int               `json:"ruleIndex"`
	Level      string            `json:"level"`
	Message    sarifMessage      `json:"message"`
	Locations  []sarifLoc        `json:"locations"`
	Properties map[string]string `json:"properties,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLoc struct {
	PhysicalLocation sarifPhys `json:"physicalLocation"`
}

type sarifPhys struct {
	ArtifactLocation sarifArt `json:"artifactLocation"`
}

type sarifArt struct {
	URI string `json:"uri"`
}

func sevToLevel(s types.Severity) string {
	switch s {
	case types.SevCritical, types.SevHigh:
		return "error"
	case types.SevMed:
		return "warning"
	default:
		return "note"
	}
}

// WriteSARIF writes findings as SARIF 2.1.0. Each card URL is reported as
// the artifact location; secrets are not included.
func WriteSARIF(w io.Writer, findings []types.Finding, version string) error {
	ruleIndex := map[string]int{}
	var names []string
	for _, f := range findings {
		if _, ok := ruleIndex[f.Rule]; !ok {
			ruleIndex[f.Rule] = 0
			names = append(names, f.Rule)
		}
	}
	sort.Strings(names)

	run := sarifRun{
		Tool: sarifTool{Driver: sarifDriver{
			Name:           "trello-watchman",
			Version:        version,
			InformationURI: "https://github.com/varalys/trello-watchman",
			Rules:          make([]sarifRule, 0, len(names)),
		}},
		Results: make([]sarifResult, 0, len(findings)),
	}
	for i, n := range names {
		ruleIndex[n] = i
		run.Tool.Driver.Rules = append(run.Tool.Driver.Rules, sarifRule{ID: n, ShortDescription: sarifMessage{Text: n}})
	}
	for _, f := range findings {
		props := map[string]string{"scope": string(f.Scope), "card_id": f.CardID}
		if f.Board != "" {
			props["board"] = f.Board
		}
		run.Results = append(run.Results, sarifResult{
			RuleID:    f.Rule,
			RuleIndex: ruleIndex[f.Rule],
			Level:     sevToLevel(f.Severity),
			Message:   sarifMessage{Text: fmt.Sprintf("%s detected in card %q", f.Rule, f.Title)},
			Locations: []sarifLoc{{
				PhysicalLocation: sarifPhys{ArtifactLocation: sarifArt{URI: f.CardURL}},
			}},
			Properties: props,
		})
	}
	doc := sarif{
		Schema:  "https://json.schemastore.org/sarif-2.1.0.json",
		Version: "2.1.0",
		Runs:    []sarifRun{run},
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
