package profile

import (
	"fmt"

	"github.com/soocke/profile-scout/config"
)

// Decision is the terminal verdict for a profile.
type Decision string

const (
	Proceed Decision = "PROCEED"
	Skip    Decision = "SKIP"
)

// MedalVerdict is the outcome of the medal-count gate.
type MedalVerdict struct {
	Adjusted    int
	Sufficient  bool
	VeteranCoin bool
	Forced      bool
	Pass        bool
	Reason      string
}

// JudgeMedals applies the medal gate. An active arrow adds the configured
// bonus of presumed hidden medals. forceCoin sets the veteran coin flag
// whenever the adjusted count is sufficient; it exists for test rigs.
func JudgeMedals(count int, coin, more bool, cfg config.Medals, forceCoin bool) MedalVerdict {
	v := MedalVerdict{Adjusted: count, VeteranCoin: coin}
	if more {
		v.Adjusted += cfg.ArrowBonus
	}
	v.Sufficient = v.Adjusted >= cfg.MinCount
	if forceCoin && v.Sufficient && !coin {
		v.VeteranCoin = true
		v.Forced = true
	}
	extra := ""
	if more {
		extra = fmt.Sprintf(" (including %d estimated from more-medals indicator)", v.Adjusted-count)
	}
	switch {
	case !v.Sufficient:
		v.Reason = fmt.Sprintf("insufficient medals (%d/%d required)%s", v.Adjusted, cfg.MinCount, extra)
	case cfg.RequireVeteranCoin && !v.VeteranCoin:
		v.Reason = "missing 5-year veteran coin"
	default:
		v.Pass = true
		v.Reason = fmt.Sprintf("%d medals%s", v.Adjusted, extra)
		if v.Forced {
			v.Reason += " (veteran coin forced by testing mode)"
		}
	}
	return v
}
