package track

import (
	"time"

	"github.com/ktauchathuranga/adsb/internal/cpr"
)

// Aircraft is the accumulated state for one ICAO address. The address is
// fixed at creation; every other field is merged from accepted frames.
type Aircraft struct {
	ICAO uint32

	Callsign string

	Altitude       int32
	AltitudeValid  bool
	AltitudeMeters bool

	GroundSpeed      uint16
	GroundSpeedValid bool
	Track            float64
	TrackValid       bool
	VertRate         int32
	VertRateValid    bool

	Squawk      uint16
	SquawkValid bool

	Lat           float64
	Lon           float64
	PositionValid bool
	PositionTime  time.Time

	evenCPR cpr.Frame
	oddCPR  cpr.Frame

	Messages  uint64
	FirstSeen time.Time
	LastSeen  time.Time

	OnGround  bool
	Emergency uint8
	Alert     bool
	SPI       bool

	// Comm-B derived state.
	IAS              uint16
	IASValid         bool
	Mach             float64
	MachValid        bool
	TAS              uint16
	TASValid         bool
	Roll             float64
	RollValid        bool
	TrueTrack        float64
	TrueTrackValid   bool
	MagHeading       float64
	MagHeadingValid  bool
	SelectedAltitude int32
	SelectedValid    bool
	BaroSetting      float64
	BaroValid        bool

	Signal uint16
}

// EmergencySquawk reports whether the current squawk is one of the three
// emergency codes (hijack, radio failure, emergency).
func (a *Aircraft) EmergencySquawk() bool {
	return a.SquawkValid &&
		(a.Squawk == 7500 || a.Squawk == 7600 || a.Squawk == 7700)
}

// mergeSignal folds a per-message signal strength into a 7/8-1/8 running
// average.
func (a *Aircraft) mergeSignal(signal uint16) {
	if signal == 0 {
		return
	}
	if a.Signal == 0 {
		a.Signal = signal
		return
	}
	a.Signal = uint16((uint32(a.Signal)*7 + uint32(signal)) / 8)
}
