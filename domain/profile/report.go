package profile

import (
	"bufio"
	"fmt"
	"image"
	"io"
	"strings"
)

// Report is the complete outcome of one profile analysis. Every field is
// always written, with zero values for stages that did not run.
type Report struct {
	Result bool   `json:"result"`
	Error  string `json:"error,omitempty"`
	Stage  Stage  `json:"-"`

	ButtonFound  bool        `json:"profile_button_found"`
	ButtonCoords image.Point `json:"profile_button_coords"`

	Sympathies SympathyResult `json:"sympathies"`

	UnwantedFound bool     `json:"unwanted_medals_found"`
	Unwanted      []string `json:"unwanted_medals"`

	MedalCount  int      `json:"medal_count"`
	ThreePlus   bool     `json:"three_plus_medals"`
	VeteranCoin bool     `json:"five_year_medal"`
	Medals      []string `json:"medals"`

	Arrow ArrowResult `json:"arrow"`

	Decision Decision `json:"decision"`
	Reason   string   `json:"reason"`
}

// NewReport returns a zeroed SKIP report listing every sympathy icon.
func NewReport(icons []string) Report {
	return Report{Sympathies: EmptySympathies(icons), Decision: Skip}
}

// Fail marks the report as an analysis failure.
func (r *Report) Fail(msg string) {
	r.Result = false
	r.Error = msg
	r.Decision = Skip
	r.Reason = msg
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func coords(p image.Point) string {
	return fmt.Sprintf("%d,%d", p.X, p.Y)
}

// Lines renders the report as KEY=value lines in a fixed order.
func (r Report) Lines() []string {
	out := make([]string, 0, 24+len(r.Medals)+len(r.Unwanted))
	add := func(k, v string) { out = append(out, k+"="+v) }

	add("PROFILE_ANALYSIS_RESULT", flag(r.Result))
	if r.Error != "" {
		add("PROFILE_ANALYSIS_ERROR", sanitizeValue(r.Error))
	}
	add("PROFILE_BUTTON_FOUND", flag(r.ButtonFound))
	add("PROFILE_BUTTON_COORDS", coords(r.ButtonCoords))
	for _, s := range r.Sympathies.Values {
		add(KeyName(s.Name)+"_VALUE", fmt.Sprint(s.Value))
	}
	add("SYMPATHIES_SUM", fmt.Sprint(r.Sympathies.Sum))
	add("TOO_MANY_SYMPATHIES", flag(r.Sympathies.TooMany))
	add("UNWANTED_MEDALS_FOUND", flag(r.UnwantedFound))
	for _, name := range r.Unwanted {
		add("UNWANTED_MEDAL_DETECTED", name)
	}
	add("THREE_PLUS_MEDALS_FOUND", flag(r.ThreePlus))
	add("FIVE_YEAR_MEDAL_FOUND", flag(r.VeteranCoin))
	add("MEDAL_COUNT", fmt.Sprint(r.MedalCount))
	for _, name := range r.Medals {
		add("MEDAL_DETECTED", name)
	}
	var arrow image.Point
	if r.Arrow.More {
		arrow = r.Arrow.Center
	}
	add("ARROW_FOUND", flag(r.Arrow.Found))
	add("ARROW_ACTIVE", flag(r.Arrow.Active))
	add("CLICK_TO_SEE_MORE_MEDALS", flag(r.Arrow.More))
	add("ARROW_COORDS_X", fmt.Sprint(arrow.X))
	add("ARROW_COORDS_Y", fmt.Sprint(arrow.Y))
	add("ARROW_COORDS", coords(arrow))
	add("DECISION", string(r.Decision))
	if r.Reason != "" {
		add("DECISION_REASON", sanitizeValue(r.Reason))
	}
	return out
}

// WriteTo writes Lines to w, one per line.
func (r Report) WriteTo(w io.Writer) (int64, error) {
	return WriteLines(w, r.Lines())
}

// WriteLines writes KEY=value lines to w.
func WriteLines(w io.Writer, lines []string) (int64, error) {
	bw := bufio.NewWriter(w)
	var n int64
	for _, l := range lines {
		m, err := bw.WriteString(l + "\n")
		n += int64(m)
		if err != nil {
			return n, err
		}
	}
	return n, bw.Flush()
}

// KeyName converts a template name into an output key prefix:
// "right-arrow" becomes "RIGHT_ARROW".
func KeyName(name string) string {
	return strings.ToUpper(strings.NewReplacer("-", "_", " ", "_", "/", "_").Replace(name))
}

// sanitizeValue keeps a value on one line.
func sanitizeValue(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
