package domain

import "sort"

type Severity string

const (
	SeverityInfo    Severity = "INFO"
	SeverityWarning Severity = "WARNING"
	SeverityError   Severity = "ERROR"
)

// Finding is one validator-produced diagnostic. Findings are append-only
// during a run and sorted before reporting.
type Finding struct {
	Severity    Severity
	RuleID      string
	Resource    ResourceRef
	Message     string
	Remediation string
}

// SortFindings orders findings by rule id, then resource identity, then
// message, so a fixed input set always reports the same sequence.
func SortFindings(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.RuleID != b.RuleID {
			return a.RuleID < b.RuleID
		}
		if a.Resource.String() != b.Resource.String() {
			return a.Resource.String() < b.Resource.String()
		}
		return a.Message < b.Message
	})
}

type ValidationSummary struct {
	Documents int
	Info      int
	Warnings  int
	Errors    int
}

type ValidationReport struct {
	Findings []Finding
	Summary  ValidationSummary
}

func NewValidationReport(documents int, findings []Finding) ValidationReport {
	SortFindings(findings)
	rep := ValidationReport{
		Findings: findings,
		Summary:  ValidationSummary{Documents: documents},
	}
	for _, f := range findings {
		switch f.Severity {
		case SeverityInfo:
			rep.Summary.Info++
		case SeverityWarning:
			rep.Summary.Warnings++
		case SeverityError:
			rep.Summary.Errors++
		}
	}
	return rep
}

func (r ValidationReport) HasErrors() bool {
	return r.Summary.Errors > 0
}
