package app

import (
	"errors"
	"fmt"
	"image"
	"io"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/soocke/profile-scout/domain/capture"
	"github.com/soocke/profile-scout/domain/profile"
	"github.com/soocke/profile-scout/domain/vision"
)

// ErrUsage marks a malformed command line.
var ErrUsage = errors.New("usage")

// Usage lists the commands Run accepts.
const Usage = `commands:
  analyze <click_x> <click_y>     full profile report
  analyze-batch [id:]<x>,<y> ...  one report block per profile, one capture
  detect <template>               single template search
  error                           error dialog search
  spectate                        spectate button search
  sympathies <click_x> <click_y>  sympathy counters only
  nickname <click_x> <click_y>    player name next to the click
  url <x> <y> <w> <h>             profile URL inside a region
  number <x> <y> <w> <h>          digits inside a region`

// SpectateTemplate is the spectate button template name.
const SpectateTemplate = "spectate_button"

// App runs one command against a container and writes KEY=value lines.
// Detection failures are reported as lines, never as errors; Run only fails
// on usage errors and output write errors.
type App struct {
	c          *Container
	out        io.Writer
	screenshot string
	jsonReport bool
}

// NewApp returns an App writing to out. screenshot, when set, overrides
// the capture source for every command.
func NewApp(c *Container, out io.Writer, screenshot string, jsonReport bool) *App {
	return &App{c: c, out: out, screenshot: screenshot, jsonReport: jsonReport}
}

type command struct {
	args int // oneOrMore for a variadic command
	run  func(a *App, args []string) ([]string, error)
}

const oneOrMore = -1

var commands = map[string]command{
	"analyze":       {2, (*App).analyze},
	"analyze-batch": {oneOrMore, (*App).analyzeBatch},
	"detect":     {1, (*App).detect},
	"error":      {0, (*App).errorDialog},
	"spectate":   {0, (*App).spectate},
	"sympathies": {2, (*App).sympathies},
	"nickname":   {2, (*App).nickname},
	"url":        {4, (*App).profileURL},
	"number":     {4, (*App).number},
}

// Run dispatches args[0] with the remaining arguments.
func (a *App) Run(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: missing command", ErrUsage)
	}
	cmd, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
	}
	switch n := len(args) - 1; {
	case cmd.args == oneOrMore && n == 0:
		return fmt.Errorf("%w: %s takes at least one argument", ErrUsage, args[0])
	case cmd.args != oneOrMore && n != cmd.args:
		return fmt.Errorf("%w: %s takes %d arguments, got %d", ErrUsage, args[0], cmd.args, n)
	}
	lines, err := cmd.run(a, args[1:])
	if err != nil {
		return err
	}
	_, err = profile.WriteLines(a.out, lines)
	return err
}

func parseInts(args []string) ([]int, error) {
	out := make([]int, len(args))
	for i, s := range args {
		v, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not an integer", ErrUsage, s)
		}
		out[i] = v
	}
	return out, nil
}

func (a *App) shot() (capture.Screenshot, error) {
	return a.c.Source.Acquire(a.screenshot)
}

func (a *App) logFailure(cmd string, err error) {
	if a.c.Logger != nil {
		a.c.Logger.Error("command failed", "command", cmd, "error", err)
	}
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func coords(p image.Point) string { return fmt.Sprintf("%d,%d", p.X, p.Y) }

func (a *App) analyze(args []string) ([]string, error) {
	v, err := parseInts(args)
	if err != nil {
		return nil, err
	}
	shot, err := a.shot()
	if err != nil {
		a.logFailure("analyze", err)
	}
	return a.report(shot, err, image.Pt(v[0], v[1])), nil
}

// report analyzes one anchor of shot, or renders a failed report when the
// capture failed.
func (a *App) report(shot capture.Screenshot, shotErr error, anchor image.Point) []string {
	var rep profile.Report
	if shotErr != nil {
		rep = profile.NewReport(a.c.Config.Sympathy.Icons)
		rep.Fail(shotErr.Error())
	} else {
		rep = a.c.Analyzer.Analyze(shot.Image, anchor)
	}
	lines := rep.Lines()
	if a.jsonReport {
		b, err := sonic.Marshal(rep)
		if err != nil {
			a.logFailure("analyze", err)
		} else {
			lines = append(lines, "REPORT_JSON="+string(b))
		}
	}
	return lines
}

// batchTarget is one scoreboard entry of analyze-batch.
type batchTarget struct {
	id     string
	anchor image.Point
}

// parseTargets reads "x,y" or "id:x,y" arguments. Entries without an id are
// named player_<index>.
func parseTargets(args []string) ([]batchTarget, error) {
	out := make([]batchTarget, 0, len(args))
	for i, arg := range args {
		id, pos, named := strings.Cut(arg, ":")
		if !named {
			id, pos = fmt.Sprintf("player_%d", i), arg
		}
		xs, ys, ok := strings.Cut(pos, ",")
		if !ok || id == "" {
			return nil, fmt.Errorf("%w: %q is not [id:]x,y", ErrUsage, arg)
		}
		v, err := parseInts([]string{xs, ys})
		if err != nil {
			return nil, err
		}
		out = append(out, batchTarget{id: id, anchor: image.Pt(v[0], v[1])})
	}
	return out, nil
}

// analyzeBatch analyzes every target against a single capture. Each block
// starts with PROFILE_INDEX and PROFILE_ID followed by the full report.
func (a *App) analyzeBatch(args []string) ([]string, error) {
	targets, err := parseTargets(args)
	if err != nil {
		return nil, err
	}
	shot, err := a.shot()
	if err != nil {
		a.logFailure("analyze-batch", err)
	}
	var lines []string
	for i, t := range targets {
		if a.c.Logger != nil {
			a.c.Logger.Info("analyzing profile", "id", t.id, "index", i, "x", t.anchor.X, "y", t.anchor.Y)
		}
		lines = append(lines, "PROFILE_INDEX="+strconv.Itoa(i), "PROFILE_ID="+t.id)
		lines = append(lines, a.report(shot, err, t.anchor)...)
	}
	return append(lines, "PROFILES_ANALYZED="+strconv.Itoa(len(targets))), nil
}

// detectLines renders a template search under the upper-cased prefix.
func detectLines(prefix string, d vision.Detection, err error) []string {
	lines := []string{
		prefix + "_DETECTION_RESULT=" + flag(d.Found),
		prefix + "_COORDS=" + coords(d.Center),
		prefix + "_CONFIDENCE=" + strconv.FormatFloat(d.Confidence, 'f', 3, 64),
	}
	if err != nil {
		lines = append(lines, prefix+"_ERROR="+err.Error())
	}
	return lines
}

func (a *App) detect(args []string) ([]string, error) {
	name := args[0]
	prefix := profile.KeyName(name)
	shot, err := a.shot()
	if err != nil {
		a.logFailure("detect", err)
		return detectLines(prefix, vision.Detection{}, err), nil
	}
	d := a.c.Matcher.Detect(shot.Image, name)
	if !d.Found {
		d.Center = image.Point{}
	}
	return detectLines(prefix, d, d.Err), nil
}

func (a *App) spectate([]string) ([]string, error) {
	d := vision.Detection{}
	shot, err := a.shot()
	if err != nil {
		a.logFailure("spectate", err)
	} else {
		d = a.c.Matcher.Detect(shot.Image, SpectateTemplate)
	}
	if !d.Found {
		d.Center = image.Point{}
	}
	return []string{
		"SPECTATE_DETECTION_RESULT=" + flag(d.Found),
		"SPECTATE_COORDS=" + coords(d.Center),
	}, nil
}

// errorDialog checks each configured dialog in order. The reported
// coordinates are the dialog's OK button when known, else the match center.
func (a *App) errorDialog([]string) ([]string, error) {
	miss := []string{"ERROR_DETECTION_RESULT=0", "ERROR_COORDS=0,0", "ERROR_TYPE=none"}
	shot, err := a.shot()
	if err != nil {
		a.logFailure("error", err)
		return miss, nil
	}
	for _, dlg := range a.c.Config.Dialogs {
		d := a.c.Matcher.Detect(shot.Image, dlg.Template)
		if !d.Found {
			continue
		}
		at := d.Center
		if dlg.OKX != 0 || dlg.OKY != 0 {
			at = image.Pt(dlg.OKX, dlg.OKY)
		}
		if a.c.Logger != nil {
			a.c.Logger.Info("error dialog", "template", dlg.Template, "confidence", d.Confidence, "x", at.X, "y", at.Y)
		}
		return []string{"ERROR_DETECTION_RESULT=1", "ERROR_COORDS=" + coords(at), "ERROR_TYPE=" + dlg.Template}, nil
	}
	return miss, nil
}

func (a *App) sympathies(args []string) ([]string, error) {
	v, err := parseInts(args)
	if err != nil {
		return nil, err
	}
	res := profile.EmptySympathies(a.c.Config.Sympathy.Icons)
	if shot, err := a.shot(); err != nil {
		a.logFailure("sympathies", err)
	} else {
		size := shot.Image.Bounds().Size()
		if band, ok := a.c.Analyzer.Geometry().SympathyBand(image.Pt(v[0], v[1]), size); ok {
			res = a.c.Sympathy.Count(shot.Image, band)
		}
	}
	lines := make([]string, 0, len(res.Values)+2)
	for _, s := range res.Values {
		lines = append(lines, profile.KeyName(s.Name)+"_VALUE="+strconv.Itoa(s.Value))
	}
	return append(lines,
		"SYMPATHIES_SUM="+strconv.Itoa(res.Sum),
		"TOO_MANY_SYMPATHIES="+flag(res.TooMany),
	), nil
}

func (a *App) nickname(args []string) ([]string, error) {
	v, err := parseInts(args)
	if err != nil {
		return nil, err
	}
	miss := []string{"NICKNAME_RESULT=0", "NICKNAME="}
	shot, err := a.shot()
	if err != nil {
		a.logFailure("nickname", err)
		return miss, nil
	}
	r, ok := a.c.Analyzer.Geometry().Nickname(image.Pt(v[0], v[1]), shot.Image.Bounds().Size())
	if !ok {
		return miss, nil
	}
	name, err := a.c.Extractor.ExtractNickname(shot.Image, r)
	if err != nil {
		return miss, nil
	}
	return []string{"NICKNAME_RESULT=1", "NICKNAME=" + name}, nil
}

func regionArgs(args []string) (vision.Region, error) {
	v, err := parseInts(args)
	if err != nil {
		return vision.Region{}, err
	}
	return vision.Region{X: v[0], Y: v[1], W: v[2], H: v[3]}, nil
}

func (a *App) profileURL(args []string) ([]string, error) {
	r, err := regionArgs(args)
	if err != nil {
		return nil, err
	}
	miss := []string{"PROFILE_URL_RESULT=0", "PROFILE_URL=", "STEAM_ID="}
	shot, err := a.shot()
	if err != nil {
		a.logFailure("url", err)
		return miss, nil
	}
	p, err := a.c.Extractor.ExtractProfileURL(shot.Image, r)
	if err != nil {
		return miss, nil
	}
	return []string{"PROFILE_URL_RESULT=1", "PROFILE_URL=" + p.URL, "STEAM_ID=" + p.SteamID}, nil
}

func (a *App) number(args []string) ([]string, error) {
	r, err := regionArgs(args)
	if err != nil {
		return nil, err
	}
	shot, err := a.shot()
	if err != nil {
		a.logFailure("number", err)
		return []string{"NUMBER_VALUE=0"}, nil
	}
	return []string{"NUMBER_VALUE=" + strconv.Itoa(a.c.Extractor.ExtractNumber(shot.Image, r))}, nil
}
