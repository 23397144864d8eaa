package config

import (
	"os"
	"path/filepath"
	"slices"

	"github.com/bytedance/sonic"

	"github.com/soocke/profile-scout/assets"
)

// Capture modes.
const (
	CaptureDirectory = "directory"
	CaptureScreen    = "screen"
)

// DefaultSteamUserID is used when STEAM_USER_ID is unset.
const DefaultSteamUserID = "1249018443"

// Offset describes a rectangle relative to an anchor point.
type Offset struct {
	DX int `json:"dx"`
	DY int `json:"dy"`
	W  int `json:"w"`
	H  int `json:"h"`
}

// Geometry holds every pixel offset derived from the profile click point.
// Values are calibrated for a 1920x1080 scoreboard layout.
type Geometry struct {
	Panel        Offset `json:"panel"`
	ArrowBand    Offset `json:"arrow_band"`
	SympathyBand Offset `json:"sympathy_band"`
	Nickname     Offset `json:"nickname"`
	NumberGap    int    `json:"number_gap"`
	NumberWidth  int    `json:"number_width"`
	NumberPad    int    `json:"number_pad"`
}

// Template carries per-template matching defaults.
type Template struct {
	Threshold float64 `json:"threshold"`
	// Region is an optional absolute search region (x, y, w, h).
	Region *[4]int `json:"region,omitempty"`
}

// Medals configures the medal and arrow detectors.
type Medals struct {
	Catalog            []string  `json:"catalog"`
	Unwanted           []string  `json:"unwanted"`
	Tiers              []float64 `json:"tiers"`
	UnwantedThreshold  float64   `json:"unwanted_threshold"`
	IoU                float64   `json:"iou"`
	MinCount           int       `json:"min_count"`
	ArrowBonus         int       `json:"arrow_bonus"`
	ArrowSearch        float64   `json:"arrow_search"`
	ArrowConfidence    float64   `json:"arrow_confidence"`
	ArrowMean          float64   `json:"arrow_mean"`
	ArrowStd           float64   `json:"arrow_std"`
	ArrowStdOverride   float64   `json:"arrow_std_override"`
	RequireVeteranCoin bool      `json:"require_veteran_coin"`
	VeteranCoin        string    `json:"veteran_coin"`
}

// Sympathy configures the sympathy counter.
type Sympathy struct {
	Icons     []string `json:"icons"`
	Threshold float64  `json:"threshold"`
	Spacing   int      `json:"spacing"`
	Ceiling   int      `json:"ceiling"`
}

// ProfileButton configures profile button search. The template threshold
// comes from Templates["profile-button"].
type ProfileButton struct {
	Template      string `json:"template"`
	ColorFallback bool   `json:"color_fallback"`
}

// OCR configures the text recognizer.
type OCR struct {
	TessdataPrefix  string   `json:"tessdata_prefix"`
	Language        string   `json:"language"`
	Scale           int      `json:"scale"`
	BinaryThreshold int      `json:"binary_threshold"`
	Contrast        float64  `json:"contrast"`
	NicknameGlyphs  []string `json:"nickname_glyphs"`
}

// Dialog maps an error dialog template to its OK button.
type Dialog = assets.Dialog

// Config holds runtime configuration for the detection pipeline.
// Fields may be loaded from a JSON file and overridden by command-line flags.
type Config struct {
	Debug    bool   `json:"debug"`
	DebugDir string `json:"debug_dir"`

	TemplateDir      string  `json:"template_dir"`
	ScreenshotDir    string  `json:"screenshot_dir"`
	SteamUserID      string  `json:"steam_user_id"`
	CaptureMode      string  `json:"capture_mode"`
	FreshnessSeconds float64 `json:"freshness_seconds"`

	DefaultThreshold float64             `json:"default_threshold"`
	Templates        map[string]Template `json:"templates"`
	Dialogs          []Dialog            `json:"dialogs"`

	Geometry      Geometry      `json:"geometry"`
	Medals        Medals        `json:"medals"`
	Sympathy      Sympathy      `json:"sympathy"`
	ProfileButton ProfileButton `json:"profile_button"`
	OCR           OCR           `json:"ocr"`

	// TestingMode forces the veteran coin flag when enough medals are present.
	TestingMode bool `json:"testing_mode"`
}

// DefaultConfig returns a Config populated with standard defaults.
func DefaultConfig() *Config {
	cat := assets.MustCatalog()
	templates := make(map[string]Template, len(cat.Thresholds))
	for name, th := range cat.Thresholds {
		templates[name] = Template{Threshold: th}
	}
	steamID := os.Getenv("STEAM_USER_ID")
	if steamID == "" {
		steamID = DefaultSteamUserID
	}
	return &Config{
		Debug:            false,
		DebugDir:         "debug_regions",
		TemplateDir:      filepath.Join("recognition", "templates"),
		ScreenshotDir:    "",
		SteamUserID:      steamID,
		CaptureMode:      CaptureDirectory,
		FreshnessSeconds: 30,
		DefaultThreshold: 0.7,
		Templates:        templates,
		Dialogs:          cat.Dialogs,
		Geometry: Geometry{
			Panel:        Offset{DX: 28, DY: -150, W: 384, H: 413},
			ArrowBand:    Offset{DX: 390, DY: -150, W: 32, H: 140},
			SympathyBand: Offset{DX: 28, DY: -45, W: 384, H: 45},
			Nickname:     Offset{DX: -40, DY: -14, W: 260, H: 28},
			NumberGap:    2,
			NumberWidth:  42,
			NumberPad:    2,
		},
		Medals: Medals{
			Catalog:           cat.Medals,
			Unwanted:          cat.Unwanted,
			Tiers:             []float64{0.90, 0.85},
			UnwantedThreshold: 0.85,
			IoU:               0.3,
			MinCount:          3,
			ArrowBonus:        2,
			ArrowSearch:       0.5,
			ArrowConfidence:   0.7,
			ArrowMean:         125,
			ArrowStd:          25,
			ArrowStdOverride:  90,
			VeteranCoin:       "5-year-veteran-coin",
		},
		Sympathy: Sympathy{
			Icons:     cat.Sympathies,
			Threshold: 0.7,
			Spacing:   50,
			Ceiling:   100,
		},
		ProfileButton: ProfileButton{
			Template:      "profile-button",
			ColorFallback: true,
		},
		OCR: OCR{
			Language:        "eng",
			Scale:           3,
			BinaryThreshold: 140,
			Contrast:        40,
			NicknameGlyphs:  cat.NicknameGlyphs,
		},
	}
}

// Validate clamps/normalizes values to safe ranges.
func (c *Config) Validate() error {
	def := DefaultConfig()
	if c.DebugDir == "" {
		c.DebugDir = def.DebugDir
	}
	if c.TemplateDir == "" {
		c.TemplateDir = def.TemplateDir
	}
	if c.SteamUserID == "" {
		c.SteamUserID = def.SteamUserID
	}
	if c.CaptureMode != CaptureDirectory && c.CaptureMode != CaptureScreen {
		c.CaptureMode = CaptureDirectory
	}
	if c.FreshnessSeconds <= 0 {
		c.FreshnessSeconds = def.FreshnessSeconds
	}
	c.DefaultThreshold = clampThreshold(c.DefaultThreshold, def.DefaultThreshold)
	if c.Templates == nil {
		c.Templates = def.Templates
	}
	for name, t := range c.Templates {
		t.Threshold = clampThreshold(t.Threshold, c.DefaultThreshold)
		c.Templates[name] = t
	}
	if len(c.Dialogs) == 0 {
		c.Dialogs = def.Dialogs
	}

	g := &c.Geometry
	if g.Panel.W <= 0 || g.Panel.H <= 0 {
		g.Panel = def.Geometry.Panel
	}
	if g.ArrowBand.W <= 0 || g.ArrowBand.H <= 0 {
		g.ArrowBand = def.Geometry.ArrowBand
	}
	if g.SympathyBand.W <= 0 || g.SympathyBand.H <= 0 {
		g.SympathyBand = def.Geometry.SympathyBand
	}
	if g.Nickname.W <= 0 || g.Nickname.H <= 0 {
		g.Nickname = def.Geometry.Nickname
	}
	if g.NumberGap < 0 {
		g.NumberGap = def.Geometry.NumberGap
	}
	if g.NumberWidth <= 0 {
		g.NumberWidth = def.Geometry.NumberWidth
	}
	if g.NumberPad < 0 {
		g.NumberPad = def.Geometry.NumberPad
	}

	m := &c.Medals
	if len(m.Catalog) == 0 {
		m.Catalog = def.Medals.Catalog
	}
	if m.Unwanted == nil {
		m.Unwanted = def.Medals.Unwanted
	}
	if len(m.Tiers) == 0 {
		m.Tiers = def.Medals.Tiers
	}
	for i, t := range m.Tiers {
		m.Tiers[i] = clampThreshold(t, def.Medals.Tiers[len(def.Medals.Tiers)-1])
	}
	// Strictest tier first.
	slices.Sort(m.Tiers)
	slices.Reverse(m.Tiers)
	m.Tiers = slices.Compact(m.Tiers)
	m.UnwantedThreshold = clampThreshold(m.UnwantedThreshold, def.Medals.UnwantedThreshold)
	if m.IoU <= 0 || m.IoU >= 1 {
		m.IoU = def.Medals.IoU
	}
	if m.MinCount <= 0 {
		m.MinCount = def.Medals.MinCount
	}
	if m.ArrowBonus < 0 {
		m.ArrowBonus = def.Medals.ArrowBonus
	}
	m.ArrowSearch = clampThreshold(m.ArrowSearch, def.Medals.ArrowSearch)
	m.ArrowConfidence = clampThreshold(m.ArrowConfidence, def.Medals.ArrowConfidence)
	if m.ArrowMean <= 0 || m.ArrowMean > 255 {
		m.ArrowMean = def.Medals.ArrowMean
	}
	if m.ArrowStd <= 0 {
		m.ArrowStd = def.Medals.ArrowStd
	}
	if m.ArrowStdOverride <= m.ArrowStd {
		m.ArrowStdOverride = def.Medals.ArrowStdOverride
	}
	if m.VeteranCoin == "" {
		m.VeteranCoin = def.Medals.VeteranCoin
	}

	s := &c.Sympathy
	if len(s.Icons) == 0 {
		s.Icons = def.Sympathy.Icons
	}
	s.Threshold = clampThreshold(s.Threshold, def.Sympathy.Threshold)
	if s.Spacing <= 0 {
		s.Spacing = def.Sympathy.Spacing
	}
	if s.Ceiling <= 0 {
		s.Ceiling = def.Sympathy.Ceiling
	}

	if c.ProfileButton.Template == "" {
		c.ProfileButton.Template = def.ProfileButton.Template
	}

	o := &c.OCR
	if o.Language == "" {
		o.Language = def.OCR.Language
	}
	if o.Scale <= 0 || o.Scale > 8 {
		o.Scale = def.OCR.Scale
	}
	// 0 selects Otsu.
	if o.BinaryThreshold < 0 || o.BinaryThreshold > 255 {
		o.BinaryThreshold = def.OCR.BinaryThreshold
	}
	if o.Contrast < -100 || o.Contrast > 100 {
		o.Contrast = def.OCR.Contrast
	}
	if o.NicknameGlyphs == nil {
		o.NicknameGlyphs = def.OCR.NicknameGlyphs
	}
	return nil
}

// Threshold returns the configured threshold for a template name.
func (c *Config) Threshold(name string) float64 {
	if t, ok := c.Templates[name]; ok && t.Threshold > 0 {
		return t.Threshold
	}
	if c.DefaultThreshold > 0 {
		return c.DefaultThreshold
	}
	return 0.7
}

// ResolvedScreenshotDir returns ScreenshotDir or the Steam screenshot folder
// for SteamUserID.
func (c *Config) ResolvedScreenshotDir() string {
	if c.ScreenshotDir != "" {
		return c.ScreenshotDir
	}
	return filepath.Join(steamRoot(), "userdata", c.SteamUserID, "760", "remote", "730", "screenshots")
}

func steamRoot() string {
	if p := os.Getenv("STEAM_PATH"); p != "" {
		return p
	}
	if pf := os.Getenv("ProgramFiles(x86)"); pf != "" {
		return filepath.Join(pf, "Steam")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".steam", "steam")
	}
	return "Steam"
}

// clampThreshold keeps thresholds inside the tuned [0.4, 0.95] range.
func clampThreshold(v, def float64) float64 {
	if v <= 0 || v > 1 {
		return def
	}
	if v < 0.4 {
		return 0.4
	}
	if v > 0.95 {
		return 0.95
	}
	return v
}

// Load attempts to read configuration from the given JSON file path. If the file does not
// exist it returns DefaultConfig(). On JSON error it returns defaults with the error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := sonic.Unmarshal(data, cfg); err != nil {
		return DefaultConfig(), err
	}
	_ = cfg.Validate()
	return cfg, nil
}

// Save writes the configuration to the given path in JSON format.
func (c *Config) Save(path string) error {
	_ = c.Validate()
	data, err := sonic.ConfigStd.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
