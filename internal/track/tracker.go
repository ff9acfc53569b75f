package track

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ktauchathuranga/adsb/internal/cpr"
	"github.com/ktauchathuranga/adsb/internal/modes"
)

const (
	// cprPairWindow is the longest even/odd gap a global decode accepts.
	cprPairWindow = 10 * time.Second

	// localDecodeRangeKm bounds how far a locally decoded fix may sit
	// from its reference (180 NM) before it is considered untrusted.
	localDecodeRangeKm = 333.36
)

// Tracker maintains the set of known aircraft, integrating validated frames
// into per-aircraft state and publishing visibility-filtered snapshots. A
// single mutex guards the map: writes are frequent but short, and readers
// are the slow collaborator paths.
type Tracker struct {
	mu       sync.Mutex
	aircraft map[uint32]*Aircraft

	whitelist   *Whitelist
	ttl         time.Duration
	minMessages uint64

	refLat float64
	refLon float64
	hasRef bool

	logger  *logrus.Logger
	evicted uint64
}

// NewTracker creates a tracker. minMessages is the ghost threshold: aircraft
// below it exist internally but stay invisible to snapshot consumers.
func NewTracker(whitelist *Whitelist, ttl time.Duration, minMessages uint64, logger *logrus.Logger) *Tracker {
	if minMessages < 1 {
		minMessages = 1
	}
	return &Tracker{
		aircraft:    make(map[uint32]*Aircraft),
		whitelist:   whitelist,
		ttl:         ttl,
		minMessages: minMessages,
		logger:      logger,
	}
}

// SetReference installs the receiver position, used as the local-decode
// fallback and for the distance/bearing published with snapshots.
func (t *Tracker) SetReference(lat, lon float64) {
	t.mu.Lock()
	t.refLat, t.refLon, t.hasRef = lat, lon, true
	t.mu.Unlock()
}

// Update integrates a CRC-validated frame. Self-identifying frames feed the
// whitelist; all frames bump liveness and merge their DF-specific fields.
func (t *Tracker) Update(f *modes.Frame) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if modes.EmbeddedICAO(f.DF) {
		t.whitelist.Add(f.ICAO)
	}

	now := f.Timestamp
	if now.IsZero() {
		now = time.Now()
	}

	ac, ok := t.aircraft[f.ICAO]
	if !ok {
		ac = &Aircraft{ICAO: f.ICAO, FirstSeen: now}
		t.aircraft[f.ICAO] = ac
	}
	ac.LastSeen = now
	ac.Messages++
	ac.mergeSignal(f.Signal)

	if f.AltitudeValid {
		ac.Altitude = f.Altitude
		ac.AltitudeValid = true
		ac.AltitudeMeters = f.AltitudeMeters
	}
	if f.SquawkValid {
		ac.Squawk = f.Squawk
		ac.SquawkValid = true
	}
	if f.Callsign != "" {
		ac.Callsign = f.Callsign
	}
	if f.GroundSpeedValid {
		ac.GroundSpeed = f.GroundSpeed
		ac.GroundSpeedValid = true
	}
	if f.TrackValid {
		ac.Track = f.Track
		ac.TrackValid = true
	}
	if f.VertRateValid {
		ac.VertRate = f.VertRate
		ac.VertRateValid = true
	}
	if f.TC == 28 && f.Subtype == 1 {
		ac.Emergency = f.Emergency
	}

	switch f.DF {
	case 4, 5, 20, 21:
		ac.OnGround = f.FS == 1 || f.FS == 3
		ac.Alert = f.FS == 2 || f.FS == 3 || f.FS == 4
		ac.SPI = f.FS == 4 || f.FS == 5
	case 11, 17:
		if f.CA == 4 {
			ac.OnGround = true
		} else if f.CA == 5 {
			ac.OnGround = false
		}
	}
	if f.Surface {
		ac.OnGround = true
	}

	if f.CPRValid && !f.Surface {
		t.mergePosition(ac, f, now)
	}
	if f.BDS != nil {
		mergeBDS(ac, f.BDS)
	}
}

// mergePosition stores the report in its parity slot and attempts a global
// decode from a fresh pair, falling back to a local decode against the last
// fix or the receiver position. On a zone mismatch the stale report is
// dropped and the new one kept as the baseline.
func (t *Tracker) mergePosition(ac *Aircraft, f *modes.Frame, now time.Time) {
	report := cpr.Frame{Odd: f.CPROdd, Lat: f.CPRLat, Lon: f.CPRLon, Time: now}
	if f.CPROdd {
		ac.oddCPR = report
	} else {
		ac.evenCPR = report
	}

	if ac.evenCPR.Valid() && ac.oddCPR.Valid() {
		gap := ac.evenCPR.Time.Sub(ac.oddCPR.Time)
		if gap < 0 {
			gap = -gap
		}
		if gap <= cprPairWindow {
			pos, ok := cpr.DecodeGlobal(ac.evenCPR, ac.oddCPR)
			if ok {
				ac.Lat, ac.Lon = pos.Lat, pos.Lon
				ac.PositionValid = true
				ac.PositionTime = now
				return
			}
			// Zone mismatch: restart pairing from the new report.
			if f.CPROdd {
				ac.evenCPR = cpr.Frame{}
			} else {
				ac.oddCPR = cpr.Frame{}
			}
		}
	}

	// Global decode pending; try a local decode against a trusted
	// reference.
	refLat, refLon, ok := t.localReference(ac)
	if !ok {
		return
	}
	pos, ok := cpr.DecodeLocal(report, refLat, refLon)
	if !ok {
		return
	}
	if dist, _ := distanceBearing(refLat, refLon, pos.Lat, pos.Lon); dist > localDecodeRangeKm {
		return
	}
	ac.Lat, ac.Lon = pos.Lat, pos.Lon
	ac.PositionValid = true
	ac.PositionTime = now
}

// localReference picks the aircraft's own recent fix when available, else
// the receiver position.
func (t *Tracker) localReference(ac *Aircraft) (float64, float64, bool) {
	if ac.PositionValid {
		return ac.Lat, ac.Lon, true
	}
	if t.hasRef {
		return t.refLat, t.refLon, true
	}
	return 0, 0, false
}

// mergeBDS folds a classified Comm-B register into aircraft state.
func mergeBDS(ac *Aircraft, bds *modes.BDS) {
	switch bds.Register {
	case modes.BDSIdentification:
		if ac.Callsign == "" {
			ac.Callsign = bds.Callsign
		}

	case modes.BDSVerticalIntent:
		if bds.MCPValid {
			ac.SelectedAltitude = bds.MCPAltitude
			ac.SelectedValid = true
		}
		if bds.BaroValid {
			ac.BaroSetting = bds.BaroSetting
			ac.BaroValid = true
		}

	case modes.BDSTrackTurn:
		if bds.RollValid {
			ac.Roll = bds.Roll
			ac.RollValid = true
		}
		if bds.TrueTrackValid {
			ac.TrueTrack = bds.TrueTrack
			ac.TrueTrackValid = true
		}
		if bds.GroundSpeedValid {
			ac.GroundSpeed = bds.GroundSpeed
			ac.GroundSpeedValid = true
		}
		if bds.TASValid {
			ac.TAS = bds.TAS
			ac.TASValid = true
		}

	case modes.BDSHeadingSpeed:
		if bds.HeadingValid {
			ac.MagHeading = bds.Heading
			ac.MagHeadingValid = true
		}
		if bds.IASValid {
			ac.IAS = bds.IAS
			ac.IASValid = true
		}
		if bds.MachValid {
			ac.Mach = bds.Mach
			ac.MachValid = true
		}
		if bds.BaroAltRateValid {
			ac.VertRate = bds.BaroAltRate
			ac.VertRateValid = true
		}
	}
}

// Sweep evicts aircraft not heard from within the TTL and returns how many
// were removed.
func (t *Tracker) Sweep() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	removed := 0
	for icao, ac := range t.aircraft {
		if now.Sub(ac.LastSeen) > t.ttl {
			delete(t.aircraft, icao)
			removed++
		}
	}
	t.evicted += uint64(removed)
	return removed
}

// Run sweeps stale aircraft on a timer until the context is canceled.
func (t *Tracker) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := t.Sweep(); removed > 0 && t.logger != nil {
				t.logger.WithField("removed", removed).Debug("Evicted stale aircraft")
			}
		}
	}
}

// Len returns the number of visible aircraft.
func (t *Tracker) Len() int {
	return len(t.Snapshot())
}

// Snapshot is the published view of one aircraft.
type Snapshot struct {
	ICAO             string
	Callsign         string
	Squawk           uint16
	SquawkValid      bool
	Altitude         int32
	AltitudeValid    bool
	GroundSpeed      uint16
	GroundSpeedValid bool
	Track            float64
	TrackValid       bool
	VertRate         int32
	VertRateValid    bool
	Lat              float64
	Lon              float64
	PositionValid    bool
	DistanceKm       float64
	Bearing          float64
	DistanceValid    bool
	LastSeen         time.Time
	Messages         uint64
	Emergency        bool
	EmergencyCode    uint8
	OnGround         bool
	IAS              uint16
	IASValid         bool
	Mach             float64
	MachValid        bool
	SelectedAltitude int32
	SelectedValid    bool
	Signal           uint16
}

// Snapshot returns the visible aircraft, ordered by address. Aircraft below
// the ghost threshold are withheld: a single CRC collision on a masked
// parity field is enough to conjure an address, two in a row is not.
func (t *Tracker) Snapshot() []Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Snapshot, 0, len(t.aircraft))
	for _, ac := range t.aircraft {
		if ac.Messages < t.minMessages {
			continue
		}

		s := Snapshot{
			ICAO:             fmt.Sprintf("%06X", ac.ICAO),
			Callsign:         ac.Callsign,
			Squawk:           ac.Squawk,
			SquawkValid:      ac.SquawkValid,
			Altitude:         ac.Altitude,
			AltitudeValid:    ac.AltitudeValid,
			GroundSpeed:      ac.GroundSpeed,
			GroundSpeedValid: ac.GroundSpeedValid,
			Track:            ac.Track,
			TrackValid:       ac.TrackValid,
			VertRate:         ac.VertRate,
			VertRateValid:    ac.VertRateValid,
			Lat:              ac.Lat,
			Lon:              ac.Lon,
			PositionValid:    ac.PositionValid,
			LastSeen:         ac.LastSeen,
			Messages:         ac.Messages,
			Emergency:        ac.Emergency != 0 || ac.EmergencySquawk(),
			EmergencyCode:    ac.Emergency,
			OnGround:         ac.OnGround,
			IAS:              ac.IAS,
			IASValid:         ac.IASValid,
			Mach:             ac.Mach,
			MachValid:        ac.MachValid,
			SelectedAltitude: ac.SelectedAltitude,
			SelectedValid:    ac.SelectedValid,
			Signal:           ac.Signal,
		}
		if t.hasRef && ac.PositionValid {
			s.DistanceKm, s.Bearing = distanceBearing(t.refLat, t.refLon, ac.Lat, ac.Lon)
			s.DistanceValid = true
		}
		out = append(out, s)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ICAO < out[j].ICAO })
	return out
}
