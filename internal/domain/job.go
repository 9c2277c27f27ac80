package domain

type JobKind string

const (
	JobFiles    JobKind = "files"
	JobDatabase JobKind = "database"
)

// UnitOutcome records the result of one independently backed-up item:
// the single sync pass, one vhost archive, or one database dump.
type UnitOutcome struct {
	Unit   string
	OK     bool
	Detail string
}

// JobResult aggregates unit outcomes across every pipeline that ran.
// The job as a whole succeeds only if every unit did.
type JobResult struct {
	Outcomes []UnitOutcome
}

func (r *JobResult) Add(outcomes ...UnitOutcome) {
	r.Outcomes = append(r.Outcomes, outcomes...)
}

func (r *JobResult) OK() bool {
	for _, o := range r.Outcomes {
		if !o.OK {
			return false
		}
	}
	return true
}

func (r *JobResult) Failed() []UnitOutcome {
	var failed []UnitOutcome
	for _, o := range r.Outcomes {
		if !o.OK {
			failed = append(failed, o)
		}
	}
	return failed
}

func Succeeded(unit string) UnitOutcome {
	return UnitOutcome{Unit: unit, OK: true}
}

func Failed(unit string, err error) UnitOutcome {
	return UnitOutcome{Unit: unit, Detail: err.Error()}
}
