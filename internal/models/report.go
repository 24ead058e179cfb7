package models

// ReportUnit is one master row of the error report: a failed unit with
// its nested violation entries.
type ReportUnit struct {
	UnitNumber int          `json:"unitNumber"`
	Identifier string       `json:"identifier"`
	Entries    []ErrorEntry `json:"entries"`
}

// ErrorReport is the exportable master/detail view of every error a job
// accumulated, keyed by unitNumber in arrival order.
type ErrorReport struct {
	Units      []ReportUnit `json:"units"`
	UnitCount  int          `json:"unitCount"`
	EntryCount int          `json:"entryCount"`
}

// BuildErrorReport flattens the stats error list into the report shape.
// Snapshots are dropped: the report is for display/export, the raw input
// stays on the stats object the client holds.
func BuildErrorReport(stats Stats) ErrorReport {
	units := make([]ReportUnit, 0, len(stats.Errors))
	entries := 0
	for _, ue := range stats.Errors {
		units = append(units, ReportUnit{
			UnitNumber: ue.UnitNumber,
			Identifier: ue.Identifier,
			Entries:    ue.Entries,
		})
		entries += len(ue.Entries)
	}
	return ErrorReport{Units: units, UnitCount: len(units), EntryCount: entries}
}
