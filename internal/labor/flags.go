package labor

import (
	"time"

	"laborcurve/internal/types"
)

// OxytocinRecentWindow is how far back from the reference instant the latest
// oxytocin event may be and still count as a recent titration.
const OxytocinRecentWindow = 90 * time.Minute

// exam is a cervical exam reduced to what the predictor needs.
type exam struct {
	at      time.Time
	cm      float64
	station *float64
}

// flagVisitor walks a time-sorted event log once, resolving the condition
// flags and collecting the exams.
type flagVisitor struct {
	epidural     bool
	induction    bool
	op           bool
	lastOxytocin *time.Time
	exams        []exam
}

var _ types.EventVisitor = (*flagVisitor)(nil)

func (v *flagVisitor) VisitExam(e types.Event, d types.ExamData) {
	v.exams = append(v.exams, exam{at: e.Timestamp, cm: d.DilationCm, station: d.Station})
	if d.Position.IsMalposition() {
		v.op = true
	}
}

func (v *flagVisitor) VisitRupture(types.Event, types.RuptureData) {}

func (v *flagVisitor) VisitMedication(e types.Event, d types.MedicationData) {
	name := types.NormalizeMedName(d.Name)
	switch {
	case name == types.MedEpidural:
		v.epidural = true
	case name == types.MedOxytocin:
		ts := e.Timestamp
		v.lastOxytocin = &ts
	case types.IsInductionAgent(name):
		v.induction = true
	}
}

func (v *flagVisitor) VisitVitals(types.Event, types.VitalsData) {}

func (v *flagVisitor) VisitFetal(types.Event, types.FetalData) {}

// scan resolves the flag set for a sorted event log as of at. Encounter
// flags (induction, epidural planned) are folded in.
func scan(enc *types.Encounter, sorted []types.Event, at time.Time) (types.PredictionFlags, []exam) {
	v := &flagVisitor{}
	for _, e := range sorted {
		e.Accept(v)
	}

	flags := types.PredictionFlags{
		Epidural:  v.epidural,
		Induction: v.induction,
		OP:        v.op,
	}
	if enc != nil {
		flags.Epidural = flags.Epidural || enc.EpiduralPlanned
		flags.Induction = flags.Induction || enc.IsInduction
	}
	if v.lastOxytocin != nil && at.Sub(*v.lastOxytocin) <= OxytocinRecentWindow {
		flags.OxytocinRecent = true
	}
	return flags, v.exams
}
