package types

// Validation constraint constants shared by types, handlers and the
// request validator.
const (
	MinDilationCm          = 0.0
	MaxDilationCm          = 10.0
	MinStation             = -5.0
	MaxStation             = 5.0
	MaxCaputMolding        = 3
	MinGestationalAgeWeeks = 20.0
	MaxGestationalAgeWeeks = 45.0
	MaxTitleLength         = 200
	MaxNoteLength          = 4000

	// MaxCurveDurationHr bounds reference curve requests; 72 h at 5-minute
	// resolution is 865 samples.
	MaxCurveDurationHr = 72.0
)

// IsValidDilation reports whether cm is a plausible cervical dilation.
func IsValidDilation(cm float64) bool {
	return cm >= MinDilationCm && cm <= MaxDilationCm
}

// IsValidStation reports whether s is within the -5..+5 station scale.
func IsValidStation(s float64) bool {
	return s >= MinStation && s <= MaxStation
}
