package profile

import (
	"bytes"
	"image"
	"reflect"
	"strings"
	"testing"

	"github.com/soocke/profile-scout/config"
	"github.com/soocke/profile-scout/domain/vision"
)

// keyValues folds report lines into a map; repeated keys keep the last value.
func keyValues(lines []string) map[string]string {
	out := make(map[string]string, len(lines))
	for _, l := range lines {
		k, v, _ := strings.Cut(l, "=")
		out[k] = v
	}
	return out
}

func expect(t *testing.T, kv map[string]string, want map[string]string) {
	t.Helper()
	for k, v := range want {
		if got, ok := kv[k]; !ok || got != v {
			t.Fatalf("%s = %q (present=%v), want %q", k, got, ok, v)
		}
	}
}

func TestAnalyze_ProceedsWithEnoughMedals(t *testing.T) {
	root := templateDir(t, scenarioMedals)
	a := newTestAnalyzer(t, root, &queuedNumbers{})
	rep := a.Analyze(scenarioA(), testAnchor)

	expect(t, keyValues(rep.Lines()), map[string]string{
		"PROFILE_ANALYSIS_RESULT":  "1",
		"PROFILE_BUTTON_FOUND":     "1",
		"PROFILE_BUTTON_COORDS":    "150,70",
		"SYMPATHIES_SUM":           "0",
		"TOO_MANY_SYMPATHIES":      "0",
		"UNWANTED_MEDALS_FOUND":    "0",
		"MEDAL_COUNT":              "4",
		"THREE_PLUS_MEDALS_FOUND":  "1",
		"FIVE_YEAR_MEDAL_FOUND":    "1",
		"ARROW_FOUND":              "1",
		"ARROW_ACTIVE":             "0",
		"CLICK_TO_SEE_MORE_MEDALS": "0",
		"ARROW_COORDS":             "0,0",
		"DECISION":                 "PROCEED",
	})
	if rep.Stage != StageReport {
		t.Fatalf("expected report stage, got %s", rep.Stage)
	}
	if len(rep.Medals) != 4 {
		t.Fatalf("unexpected medals %v", rep.Medals)
	}
}

func TestAnalyze_UnwantedMedalSkips(t *testing.T) {
	root := templateDir(t, scenarioMedals)
	img := scenarioA()
	paste(img, pattern("hydra-pin"), medalSlots[4])

	rep := newTestAnalyzer(t, root, &queuedNumbers{}).Analyze(img, testAnchor)
	kv := keyValues(rep.Lines())
	expect(t, kv, map[string]string{
		"UNWANTED_MEDALS_FOUND":   "1",
		"UNWANTED_MEDAL_DETECTED": "hydra-pin",
		"MEDAL_COUNT":             "0",
		"THREE_PLUS_MEDALS_FOUND": "0",
		"DECISION":                "SKIP",
	})
	if rep.Stage != StageUnwantedMedals {
		t.Fatalf("expected unwanted stage, got %s", rep.Stage)
	}
}

func TestAnalyze_MissingButtonSkipsWithZeroedFields(t *testing.T) {
	root := templateDir(t, scenarioMedals)
	img := blankScreen()
	for i, m := range scenarioMedals {
		paste(img, pattern(m), medalSlots[i])
	}

	rep := newTestAnalyzer(t, root, &queuedNumbers{}).Analyze(img, testAnchor)
	expect(t, keyValues(rep.Lines()), map[string]string{
		"PROFILE_ANALYSIS_RESULT": "1",
		"PROFILE_BUTTON_FOUND":    "0",
		"PROFILE_BUTTON_COORDS":   "0,0",
		"SMILE_VALUE":             "0",
		"TEACH_VALUE":             "0",
		"CROWN_VALUE":             "0",
		"SYMPATHIES_SUM":          "0",
		"UNWANTED_MEDALS_FOUND":   "0",
		"MEDAL_COUNT":             "0",
		"FIVE_YEAR_MEDAL_FOUND":   "0",
		"ARROW_FOUND":             "0",
		"DECISION":                "SKIP",
		"DECISION_REASON":         "profile button not found",
	})
}

func TestAnalyze_TooManySympathiesSkips(t *testing.T) {
	root := templateDir(t, scenarioMedals)
	img := scenarioA()
	for i, name := range []string{"smile", "teach", "crown"} {
		paste(img, pattern(name), sympathyAt[i])
	}
	numbers := &queuedNumbers{values: []int{40, 35, 30}}

	rep := newTestAnalyzer(t, root, numbers).Analyze(img, testAnchor)
	expect(t, keyValues(rep.Lines()), map[string]string{
		"SMILE_VALUE":         "40",
		"TEACH_VALUE":         "35",
		"CROWN_VALUE":         "30",
		"SYMPATHIES_SUM":      "105",
		"TOO_MANY_SYMPATHIES": "1",
		"MEDAL_COUNT":         "0",
		"DECISION":            "SKIP",
	})
	if len(numbers.calls) != 3 {
		t.Fatalf("expected three number reads, got %d", len(numbers.calls))
	}
	first := numbers.calls[0]
	if first.X != sympathyAt[0].X+patternSize+2 || first.W != 42 {
		t.Fatalf("number cell not right of the icon: %v", first)
	}
}

func TestAnalyze_SympathiesAtCeilingProceed(t *testing.T) {
	root := templateDir(t, scenarioMedals)
	img := scenarioA()
	for i, name := range []string{"smile", "teach", "crown"} {
		paste(img, pattern(name), sympathyAt[i])
	}
	rep := newTestAnalyzer(t, root, &queuedNumbers{values: []int{50, 30, 20}}).Analyze(img, testAnchor)
	if rep.Sympathies.Sum != 100 || rep.Sympathies.TooMany {
		t.Fatalf("sum 100 must not exceed the ceiling: %+v", rep.Sympathies)
	}
	if rep.Decision != Proceed {
		t.Fatalf("expected PROCEED, got %s (%s)", rep.Decision, rep.Reason)
	}
}

func TestAnalyze_SympathySlotSpacing(t *testing.T) {
	root := templateDir(t, scenarioMedals)
	img := scenarioA()
	paste(img, pattern("smile"), image.Pt(150, 165))
	paste(img, pattern("teach"), image.Pt(180, 165))
	numbers := &queuedNumbers{values: []int{7, 9}}

	rep := newTestAnalyzer(t, root, numbers).Analyze(img, testAnchor)
	vals := rep.Sympathies.Values
	if !vals[0].Found || vals[0].Value != 7 {
		t.Fatalf("first icon should win the slot: %+v", vals[0])
	}
	if vals[1].Found || vals[1].Value != 0 {
		t.Fatalf("icon within spacing should be dropped: %+v", vals[1])
	}
	if len(numbers.calls) != 1 {
		t.Fatalf("expected one number read, got %d", len(numbers.calls))
	}
}

func TestAnalyze_ActiveArrowAddsBonus(t *testing.T) {
	medals := scenarioMedals[1:2]
	root := templateDir(t, medals)
	img := blankScreen()
	paste(img, pattern("profile-button"), buttonAt)
	paste(img, pattern(medals[0]), medalSlots[0])
	paste(img, activeArrow(), arrowAt)

	rep := newTestAnalyzer(t, root, &queuedNumbers{}).Analyze(img, testAnchor)
	expect(t, keyValues(rep.Lines()), map[string]string{
		"MEDAL_COUNT":              "1",
		"THREE_PLUS_MEDALS_FOUND":  "1",
		"ARROW_ACTIVE":             "1",
		"CLICK_TO_SEE_MORE_MEDALS": "1",
		"ARROW_COORDS":             "506,110",
		"ARROW_COORDS_X":           "506",
		"ARROW_COORDS_Y":           "110",
		"DECISION":                 "PROCEED",
	})
}

func TestAnalyze_InsufficientMedalsSkips(t *testing.T) {
	medals := scenarioMedals[:2]
	root := templateDir(t, medals)
	img := blankScreen()
	paste(img, pattern("profile-button"), buttonAt)
	for i, m := range medals {
		paste(img, pattern(m), medalSlots[i])
	}

	rep := newTestAnalyzer(t, root, &queuedNumbers{}).Analyze(img, testAnchor)
	if rep.Decision != Skip || rep.MedalCount != 2 || rep.ThreePlus {
		t.Fatalf("unexpected verdict %+v", rep)
	}
	if !strings.Contains(rep.Reason, "insufficient medals (2/3") {
		t.Fatalf("unexpected reason %q", rep.Reason)
	}
}

func TestAnalyze_DuplicateMedalCountsOnce(t *testing.T) {
	medals := scenarioMedals[1:2]
	root := templateDir(t, medals)
	img := blankScreen()
	paste(img, pattern("profile-button"), buttonAt)
	paste(img, pattern(medals[0]), medalSlots[0])
	paste(img, pattern(medals[0]), medalSlots[3])

	rep := newTestAnalyzer(t, root, &queuedNumbers{}).Analyze(img, testAnchor)
	if rep.MedalCount != 1 {
		t.Fatalf("duplicate template counted %d times", rep.MedalCount)
	}
}

func TestAnalyze_UnwantedBeatsEverything(t *testing.T) {
	root := templateDir(t, scenarioMedals)
	img := blankScreen()
	paste(img, pattern("profile-button"), buttonAt)
	for i, m := range scenarioMedals {
		paste(img, pattern(m), medalSlots[i])
	}
	paste(img, pattern("hydra-pin"), medalSlots[5])
	paste(img, activeArrow(), arrowAt)

	rep := newTestAnalyzer(t, root, &queuedNumbers{}, WithTestingMode(true)).Analyze(img, testAnchor)
	if rep.Decision != Skip || !rep.UnwantedFound {
		t.Fatalf("unwanted medal must force SKIP: %+v", rep)
	}
}

func TestAnalyze_Idempotent(t *testing.T) {
	root := templateDir(t, scenarioMedals)
	a := newTestAnalyzer(t, root, &queuedNumbers{})
	img := scenarioA()
	first := a.Analyze(img, testAnchor).Lines()
	second := a.Analyze(img, testAnchor).Lines()
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("repeated analysis differs:\n%v\n%v", first, second)
	}
}

func TestAnalyze_InvalidAnchorFails(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Geometry.Panel = config.Offset{DX: 0, DY: 0, W: 0, H: 10}
	lib := vision.NewLibrary(t.TempDir(), discardLogger)
	a := NewAnalyzer(cfg, vision.NewMatcher(lib, cfg, discardLogger), nil, discardLogger)
	rep := a.Analyze(blankScreen(), testAnchor)
	kv := keyValues(rep.Lines())
	expect(t, kv, map[string]string{
		"PROFILE_ANALYSIS_RESULT": "0",
		"PROFILE_ANALYSIS_ERROR":  "invalid ROI dimensions",
		"DECISION":                "SKIP",
	})

	rep = a.Analyze(nil, testAnchor)
	if rep.Result || rep.Error == "" {
		t.Fatalf("nil screenshot should fail: %+v", rep)
	}
}

func TestReport_EveryExitWritesEveryKey(t *testing.T) {
	root := templateDir(t, scenarioMedals)
	a := newTestAnalyzer(t, root, &queuedNumbers{})
	keys := func(r Report) []string {
		var ks []string
		for _, l := range r.Lines() {
			k, _, _ := strings.Cut(l, "=")
			if k == "MEDAL_DETECTED" || k == "UNWANTED_MEDAL_DETECTED" || k == "PROFILE_ANALYSIS_ERROR" {
				continue
			}
			ks = append(ks, k)
		}
		return ks
	}
	proceed := keys(a.Analyze(scenarioA(), testAnchor))
	skip := keys(a.Analyze(blankScreen(), testAnchor))
	if !reflect.DeepEqual(proceed, skip) {
		t.Fatalf("key sets differ:\n%v\n%v", proceed, skip)
	}
}

func TestReport_WriteTo(t *testing.T) {
	rep := NewReport([]string{"smile"})
	rep.Result = true
	rep.Reason = "multi\nline   reason"
	var buf bytes.Buffer
	if _, err := rep.WriteTo(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "PROFILE_ANALYSIS_RESULT=1\n") {
		t.Fatalf("unexpected first line in %q", out)
	}
	if !strings.Contains(out, "SMILE_VALUE=0\n") || !strings.Contains(out, "DECISION_REASON=multi line reason\n") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestKeyName(t *testing.T) {
	cases := map[string]string{
		"smile":          "SMILE",
		"right-arrow":    "RIGHT_ARROW",
		"error dialog/2": "ERROR_DIALOG_2",
	}
	for in, want := range cases {
		if got := KeyName(in); got != want {
			t.Fatalf("KeyName(%q) = %q want %q", in, got, want)
		}
	}
}

func TestJudgeMedals(t *testing.T) {
	cfg := config.DefaultConfig().Medals
	strict := cfg
	strict.RequireVeteranCoin = true

	cases := []struct {
		name      string
		count     int
		coin      bool
		more      bool
		cfg       config.Medals
		force     bool
		pass      bool
		adjusted  int
		veteran   bool
		sufficient bool
	}{
		{"three medals pass", 3, false, false, cfg, false, true, 3, false, true},
		{"two medals fail", 2, true, false, cfg, false, false, 2, true, false},
		{"arrow bonus lifts one medal", 1, false, true, cfg, false, true, 3, false, true},
		{"arrow bonus not enough", 0, false, true, cfg, false, false, 2, false, false},
		{"coin required and missing", 4, false, false, strict, false, false, 4, false, true},
		{"coin required and present", 4, true, false, strict, false, true, 4, true, true},
		{"testing mode forces coin", 4, false, false, strict, true, true, 4, true, true},
		{"testing mode needs enough medals", 2, false, false, strict, true, false, 2, false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := JudgeMedals(tc.count, tc.coin, tc.more, tc.cfg, tc.force)
			if v.Pass != tc.pass || v.Adjusted != tc.adjusted || v.VeteranCoin != tc.veteran || v.Sufficient != tc.sufficient {
				t.Fatalf("unexpected verdict %+v", v)
			}
			if v.Reason == "" {
				t.Fatalf("empty reason")
			}
		})
	}
}

func TestArrowActive(t *testing.T) {
	cfg := config.DefaultConfig().Medals
	cases := []struct {
		mean, std float64
		want      bool
	}{
		{40, 95, true},
		{130, 30, true},
		{125, 25, true},
		{124, 60, false},
		{200, 24, false},
		{57, 10, false},
	}
	for _, tc := range cases {
		if got := ArrowActive(tc.mean, tc.std, cfg); got != tc.want {
			t.Fatalf("ArrowActive(%v, %v) = %v want %v", tc.mean, tc.std, got, tc.want)
		}
	}
}

func TestGeometry_ClampsToScreen(t *testing.T) {
	g := NewGeometry(config.DefaultConfig().Geometry)
	size := image.Pt(640, 520)

	p, ok := g.Panel(testAnchor, size)
	if !ok || p != (vision.Region{X: 128, Y: 50, W: 384, H: 413}) {
		t.Fatalf("unexpected panel %v ok=%v", p, ok)
	}
	p, ok = g.Panel(image.Pt(600, 10), size)
	if !ok || p.X+p.W > size.X || p.Y < 0 || p.Y+p.H > size.Y {
		t.Fatalf("panel escapes the screen: %v", p)
	}
	for _, anchor := range []image.Point{{0, 0}, {639, 519}, {-50, 900}, {2000, -3}} {
		for _, fn := range []func(image.Point, image.Point) (vision.Region, bool){g.Panel, g.ArrowBand, g.SympathyBand, g.Nickname} {
			r, ok := fn(anchor, size)
			if !ok {
				continue
			}
			if r.X < 0 || r.Y < 0 || r.X+r.W > size.X || r.Y+r.H > size.Y {
				t.Fatalf("region %v outside %v for anchor %v", r, size, anchor)
			}
		}
	}
	cell, ok := g.NumberCell(vision.Region{X: 630, Y: 100, W: 8, H: 8}, size)
	if ok && cell.X+cell.W > size.X {
		t.Fatalf("number cell escapes the screen: %v", cell)
	}
}
