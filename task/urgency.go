package task

import "time"

// UrgencyCoefficients weights the terms of the urgency computation. All
// fields are read from host-supplied configuration at call time - there is
// no package-level default baked into the core beyond the zero-value
// (which yields urgency 0 for every task, a safe, inert default).
type UrgencyCoefficients struct {
	Priority float64
	ActiveTerm float64
	AgeMax float64
	AgeCoeff float64
	TagTerm float64
	DueCoeff float64
	BlockingTerm float64
	BlockedTerm float64
	ProjectTerm float64
	AnnotateTerm float64
	ScheduledTerm float64
	PriorityH float64
	PriorityM float64
	PriorityL float64
}

// UrgencyInputs carries the booleans/scalars the formula needs that are not
// derivable from the Task's own attributes alone (blocked/blocked-by status
// is a DependencyResolver projection, not a stored attribute).
type UrgencyInputs struct {
	Now time.Time
	IsBlocked bool
	// IsBlocking reports whether some other task depends on this one.
	IsBlocking bool
}

// Urgency computes the weighted-sum urgency score, combining priority,
// age, due-date proximity, blocking/blocked status, tags, and the
// remaining terms below. It is a pure function of the Task's attributes,
// the supplied coefficients, and the supplied inputs - no attribute is
// read from configuration, no configuration is read from attributes.
func (t *Task) Urgency(c UrgencyCoefficients, in UrgencyInputs) float64 {
	var u float64

	switch priority, _ := t.Get("priority"); priority {
	case "H":
		u += c.PriorityH
	case "M":
		u += c.PriorityM
	case "L":
		u += c.PriorityL
	}

	if t.IsActive() {
		u += c.ActiveTerm
	}

	if entry, ok, err := t.GetDate(AttrEntry); err == nil && ok {
		age := in.Now.Sub(entry).Hours() / 24
		if c.AgeMax > 0 && age > c.AgeMax {
			age = c.AgeMax
		}
		if age > 0 {
			u += c.AgeCoeff * (age / maxFloat(c.AgeMax, 1))
		}
	}

	if len(t.Tags()) > 0 {
		u += c.TagTerm
	}

	if due, ok, err := t.GetDate(AttrDue); err == nil && ok {
		days := due.Sub(in.Now).Hours() / 24
		u += c.DueCoeff * dueUrgency(days)
	}

	if in.IsBlocking {
		u += c.BlockingTerm
	}
	if in.IsBlocked {
		u += c.BlockedTerm
	}

	if t.Description() != "" && t.attrs[AttrProject] != "" {
		u += c.ProjectTerm
	}

	if len(t.Annotations()) > 0 {
		u += c.AnnotateTerm
	}

	if scheduled, ok, err := t.GetDate(AttrScheduled); err == nil && ok && !scheduled.After(in.Now) {
		u += c.ScheduledTerm
	}

	return u
}

// dueUrgency maps a signed day count (negative = overdue) onto [0,1],
// matching the classic taskwarrior piecewise curve: overdue tasks saturate
// at 1, tasks more than two weeks out saturate at 0, with a linear ramp
// between.
func dueUrgency(daysUntilDue float64) float64 {
	switch {
	case daysUntilDue <= 0:
		return 1.0
	case daysUntilDue >= 14:
		return 0.0
	default:
		return 1.0 - daysUntilDue/14.0
	}
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
