package labor

import (
	"fmt"
	"strings"
	"time"

	"laborcurve/internal/types"
)

// labeler renders the one-line label of an event.
type labeler struct {
	label string
}

var _ types.EventVisitor = (*labeler)(nil)

func (l *labeler) VisitExam(_ types.Event, d types.ExamData) {
	eff, station := "?", "?"
	if d.EffacementPct != nil {
		eff = formatNum(*d.EffacementPct)
	}
	if d.Station != nil {
		station = formatNum(*d.Station)
	}
	pos := ""
	if d.Position != "" {
		pos = " " + strings.ToUpper(string(d.Position))
	}
	l.label = fmt.Sprintf("SVE: %s cm / %s%% / %s%s", formatNum(d.DilationCm), eff, station, pos)
}

func (l *labeler) VisitRupture(_ types.Event, d types.RuptureData) {
	fluid := string(d.Fluid)
	if fluid == "" {
		fluid = string(types.FluidUnknown)
	}
	l.label = "ROM: " + fluid
	if d.Meconium {
		l.label += " (meconium)"
	}
}

func (l *labeler) VisitMedication(_ types.Event, d types.MedicationData) {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		name = "med"
	}
	l.label = strings.ToUpper(name)
	if d.Rate != "" {
		l.label += " • " + d.Rate
	}
}

func (l *labeler) VisitVitals(_ types.Event, d types.VitalsData) {
	var parts []string
	if d.TempC != nil {
		parts = append(parts, formatNum(*d.TempC)+"°C")
	}
	if d.HeartRate != nil {
		parts = append(parts, fmt.Sprintf("HR %d", *d.HeartRate))
	}
	if d.SystolicBP != nil && d.DiastolicBP != nil {
		parts = append(parts, fmt.Sprintf("BP %d/%d", *d.SystolicBP, *d.DiastolicBP))
	}
	if len(parts) == 0 {
		l.label = "Vitals: entry"
		return
	}
	l.label = "Vitals: " + strings.Join(parts, " • ")
}

func (l *labeler) VisitFetal(_ types.Event, d types.FetalData) {
	l.label = "Fetal"
	if d.Category != "" {
		l.label = "Cat " + string(d.Category)
	}
	if d.RecurrentDecels {
		l.label += " • recurrent decels"
	}
}

// EventLabel returns the human-readable one-line label for e.
func EventLabel(e types.Event) string {
	l := &labeler{label: string(e.Kind())}
	e.Accept(l)
	return l.label
}

// FormatTimestamp renders t as 02JAN2006 15:04 in loc.
func FormatTimestamp(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return strings.ToUpper(t.In(loc).Format("02Jan2006")) + t.In(loc).Format(" 15:04")
}

// Summary renders the plain-text logbook for an encounter. Timestamps are
// shown in loc (UTC when nil).
func Summary(enc *types.Encounter, events []types.Event, loc *time.Location) string {
	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}

	ga := "?"
	if enc.GestationalAgeWeeks != nil {
		ga = formatNum(*enc.GestationalAgeWeeks)
	}
	onset := "Spontaneous"
	if enc.IsInduction {
		onset = "Induction"
	}
	epidural := ""
	if enc.EpiduralPlanned {
		epidural = " | Epidural planned"
	}

	line("LaborCurve Logbook summary")
	line("Encounter: %s", enc.Title)
	line("Started: %s", FormatTimestamp(enc.StartedAt, loc))
	line("Parity: %s | GA: %sw | %s%s", enc.Parity, ga, onset, epidural)
	if enc.Tags != "" {
		line("Tags: %s", enc.Tags)
	}
	if enc.Notes != "" {
		line("Notes: %s", enc.Notes)
	}
	line("")

	for _, e := range SortEvents(events) {
		line("%s  %s", FormatTimestamp(e.Timestamp, loc), EventLabel(e))
	}

	line("")
	if enc.OutcomeAt == nil {
		b.WriteString("Outcome: not set")
		return b.String()
	}
	mode := string(enc.OutcomeMode)
	if mode == "" {
		mode = string(types.OutcomeUnknown)
	}
	outcome := fmt.Sprintf("Outcome: %s (%s) @ %s", enc.Status, mode, FormatTimestamp(*enc.OutcomeAt, loc))
	if enc.OutcomeNote != "" {
		outcome += " • " + enc.OutcomeNote
	}
	b.WriteString(outcome)
	return b.String()
}
