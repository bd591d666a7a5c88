package playback

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// Rate selects how often the tick handler outputs a sample.
type Rate int

const (
	RateFull Rate = iota // One sample per tick
	RateHalf             // One sample every second tick
)

// String returns the string representation of the rate.
func (r Rate) String() string {
	switch r {
	case RateFull:
		return "full"
	case RateHalf:
		return "half"
	default:
		return "unknown"
	}
}

// Layout selects how samples map to output channels.
type Layout int

const (
	LayoutMono   Layout = iota // Channel 1 only
	LayoutStereo               // Interleaved samples on channels 1 and 2
	LayoutBridge               // Same sample on channels 1 and 2, inverted downstream
	LayoutQuadro               // Four channels; reserved
)

// String returns the string representation of the layout.
func (l Layout) String() string {
	switch l {
	case LayoutMono:
		return "mono"
	case LayoutStereo:
		return "stereo"
	case LayoutBridge:
		return "bridge"
	case LayoutQuadro:
		return "quadro"
	default:
		return "unknown"
	}
}

// Compact mode flag encoding.
const (
	ModeFlagHalfRate   uint8 = 0x10
	ModeFlagStereo     uint8 = 0x01
	ModeFlagBridge     uint8 = 0x02
	ModeFlagQuadro     uint8 = 0x04
	modeFlagLayoutMask       = ModeFlagStereo | ModeFlagBridge | ModeFlagQuadro
)

// Errors
var (
	ErrUnsupportedMode = errors.New("unsupported sound mode")
	ErrInvalidMode     = errors.New("invalid sound mode")
)

// Mode is the sound mode passed to Initialize.
type Mode struct {
	Rate   Rate
	Layout Layout
}

// Validate checks that the mode can be played.
func (m Mode) Validate() error {
	switch m.Rate {
	case RateFull, RateHalf:
	default:
		return errors.Wrapf(ErrInvalidMode, "rate=%d", int(m.Rate))
	}
	switch m.Layout {
	case LayoutMono, LayoutStereo, LayoutBridge:
		return nil
	case LayoutQuadro:
		return errors.Wrap(ErrUnsupportedMode, "quadro layout is reserved")
	default:
		return errors.Wrapf(ErrInvalidMode, "layout=%d", int(m.Layout))
	}
}

// Channels returns the number of output channels the mode drives.
func (m Mode) Channels() int {
	switch m.Layout {
	case LayoutStereo, LayoutBridge:
		return 2
	case LayoutQuadro:
		return 4
	default:
		return 1
	}
}

// UnitSize returns the number of buffer bytes consumed per output tick.
func (m Mode) UnitSize() int {
	if m.Layout == LayoutStereo {
		return 2
	}
	return 1
}

// Flags returns the compact encoding of the mode.
func (m Mode) Flags() uint8 {
	var b uint8
	if m.Rate == RateHalf {
		b |= ModeFlagHalfRate
	}
	switch m.Layout {
	case LayoutStereo:
		b |= ModeFlagStereo
	case LayoutBridge:
		b |= ModeFlagBridge
	case LayoutQuadro:
		b |= ModeFlagQuadro
	}
	return b
}

// String returns e.g. "stereo/half".
func (m Mode) String() string {
	return m.Layout.String() + "/" + m.Rate.String()
}

// ParseModeFlags decodes the compact mode encoding. At most one layout bit may
// be set.
func ParseModeFlags(b uint8) (Mode, error) {
	if b&^(ModeFlagHalfRate|modeFlagLayoutMask) != 0 {
		return Mode{}, errors.Wrapf(ErrInvalidMode, "unknown bits 0x%02x", b)
	}

	m := Mode{Rate: RateFull, Layout: LayoutMono}
	if b&ModeFlagHalfRate != 0 {
		m.Rate = RateHalf
	}
	switch b & modeFlagLayoutMask {
	case 0:
	case ModeFlagStereo:
		m.Layout = LayoutStereo
	case ModeFlagBridge:
		m.Layout = LayoutBridge
	case ModeFlagQuadro:
		m.Layout = LayoutQuadro
	default:
		return Mode{}, errors.Wrapf(ErrInvalidMode, "conflicting layout bits 0x%02x", b&modeFlagLayoutMask)
	}
	return m, nil
}

// ParseMode builds a mode from its textual rate and layout names.
func ParseMode(rate, layout string) (Mode, error) {
	var m Mode
	switch strings.ToLower(rate) {
	case "full", "":
		m.Rate = RateFull
	case "half":
		m.Rate = RateHalf
	default:
		return Mode{}, errors.Wrapf(ErrInvalidMode, "rate %q", rate)
	}
	switch strings.ToLower(layout) {
	case "mono", "":
		m.Layout = LayoutMono
	case "stereo":
		m.Layout = LayoutStereo
	case "bridge":
		m.Layout = LayoutBridge
	case "quadro":
		m.Layout = LayoutQuadro
	default:
		return Mode{}, errors.Wrapf(ErrInvalidMode, "layout %q", layout)
	}
	return m, nil
}
