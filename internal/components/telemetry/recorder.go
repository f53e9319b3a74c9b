package telemetry

import "sync"

type ReportKind int

const (
	ReportKindBroken ReportKind = iota
	ReportKindWarning
	ReportKindDebug
	ReportKindCount
)

type Report struct {
	Kind ReportKind
	// Id holds the message for debug reports.
	Id     string
	Params []any
	Count  int64
}

// Recorder implements API by keeping every report in memory, it is meant
// for tests.
type Recorder struct {
	lock    sync.Mutex
	reports []Report
}

func (r *Recorder) record(report Report) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.reports = append(r.reports, report)
}

func (r *Recorder) ReportBroken(id string, params ...any) {
	r.record(Report{Kind: ReportKindBroken, Id: id, Params: params})
}

func (r *Recorder) ReportWarning(id string, params ...any) {
	r.record(Report{Kind: ReportKindWarning, Id: id, Params: params})
}

func (r *Recorder) ReportDebug(msg string, params ...any) {
	r.record(Report{Kind: ReportKindDebug, Id: msg, Params: params})
}

func (r *Recorder) ReportCount(id string, count int64) {
	r.record(Report{Kind: ReportKindCount, Id: id, Count: count})
}

func (r *Recorder) Reports() []Report {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]Report(nil), r.reports...)
}

// Of returns the reports of a kind, in the order they were made.
func (r *Recorder) Of(kind ReportKind) []Report {
	var out []Report
	for _, report := range r.Reports() {
		if report.Kind == kind {
			out = append(out, report)
		}
	}
	return out
}
