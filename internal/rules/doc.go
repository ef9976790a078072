// Package rules loads declarative detection rules: the search strings sent to
// Trello, the regular expression that confirms a match, the scopes a rule
// applies to, and self-test cases that keep the pattern honest.
//
// Rules are YAML documents:
//
//	filename: aws_keys.yaml
//	enabled: true
//	meta: {name: AWS Access Keys, severity: high, ...}
//	scope: [text]
//	strings: ['"AKIA"']
//	pattern: 'AKIA[0-9A-Z]{16}'
//	test_cases: {match_cases: [...], fail_cases: blank}
package rules
