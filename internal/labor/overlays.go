package labor

import (
	"math"
	"strings"
	"time"

	"laborcurve/internal/types"
)

// Overlay sizing, in hours.
const (
	overlayMinHr      = 6.0
	overlayMaxHr      = 24.0
	overlayLookahead  = 6.0
	overlayDefaultEnd = 8.0
)

// markerVisitor turns ROM, epidural and oxytocin events into timeline
// markers.
type markerVisitor struct {
	t0      time.Time
	markers []types.Marker
}

var _ types.EventVisitor = (*markerVisitor)(nil)

func (v *markerVisitor) add(at time.Time, label string) {
	v.markers = append(v.markers, types.Marker{Hour: hoursBetween(v.t0, at), Label: label})
}

func (v *markerVisitor) VisitExam(types.Event, types.ExamData) {}

func (v *markerVisitor) VisitRupture(e types.Event, _ types.RuptureData) {
	v.add(e.Timestamp, "ROM")
}

func (v *markerVisitor) VisitMedication(e types.Event, d types.MedicationData) {
	switch types.NormalizeMedName(d.Name) {
	case types.MedEpidural:
		v.add(e.Timestamp, "Epidural")
	case types.MedOxytocin:
		v.add(e.Timestamp, strings.TrimSpace("Oxy "+d.Rate))
	}
}

func (v *markerVisitor) VisitVitals(types.Event, types.VitalsData) {}

func (v *markerVisitor) VisitFetal(types.Event, types.FetalData) {}

// Overlays builds chart data for an encounter: the selected population
// reference curves, the patient's dilation and station series, and timing
// markers. Hours are relative to the first event.
//
// The curve duration extends six hours past the latest exam, bounded to
// [6, 24]; with no exams it is 14.
func Overlays(events []types.Event, settings types.Settings, opts types.OverlayOptions) types.Overlays {
	sorted := SortEvents(events)

	var t0 time.Time
	if len(sorted) > 0 {
		t0 = sorted[0].Timestamp
	}

	out := types.Overlays{
		Curves:   []types.NamedCurve{},
		Dilation: []types.SeriesPoint{},
		Station:  []types.SeriesPoint{},
	}

	fv := &flagVisitor{}
	mv := &markerVisitor{t0: t0, markers: []types.Marker{}}
	for _, e := range sorted {
		e.Accept(fv)
		e.Accept(mv)
	}
	out.Markers = mv.markers

	var lastExamHr float64
	for _, ex := range fv.exams {
		h := hoursBetween(t0, ex.at)
		out.Dilation = append(out.Dilation, types.SeriesPoint{Hour: h, Value: ex.cm})
		if ex.station != nil {
			out.Station = append(out.Station, types.SeriesPoint{Hour: h, Value: *ex.station})
		}
		lastExamHr = h
	}
	// A last exam at hour zero sizes the chart like no exams at all.
	if lastExamHr == 0 {
		lastExamHr = overlayDefaultEnd
	}
	out.DurationHr = math.Max(overlayMinHr, math.Min(overlayMaxHr, lastExamHr+overlayLookahead))

	profile := func(p types.Parity) types.CurveProfile {
		return types.CurveProfile{
			Parity:            p,
			DurationHr:        out.DurationHr,
			ActiveThresholdCm: settings.ActiveThresholdCm,
			Induction:         opts.Induction,
			Epidural:          opts.Epidural,
			OP:                opts.OP,
		}
	}
	if opts.Nullip {
		out.Curves = append(out.Curves, types.NamedCurve{Name: "Ref: Nullip", Curve: ReferenceCurve(profile(types.ParityNullip))})
	}
	if opts.Multip {
		out.Curves = append(out.Curves, types.NamedCurve{Name: "Ref: Multip", Curve: ReferenceCurve(profile(types.ParityMultip))})
	}
	return out
}
