package ocr

import (
	"regexp"
	"strings"
)

// ProfileDomain is the host every profile URL must contain.
const ProfileDomain = "steamcommunity.com"

// SteamIDPrefix starts every valid 17-digit numeric profile id.
const SteamIDPrefix = "7656119"

var (
	profilesRe = regexp.MustCompile(`steamcommunity\.com/profiles/([0-9A-Za-z]+)`)
	vanityRe   = regexp.MustCompile(`steamcommunity\.com/id/([A-Za-z0-9_\-.]+)`)
)

// ProfileURL is a validated community profile address.
type ProfileURL struct {
	URL     string
	SteamID string // set for /profiles/ URLs
	Vanity  string // set for /id/ URLs
}

// Numeric reports whether the URL carries a numeric Steam ID.
func (p ProfileURL) Numeric() bool { return p.SteamID != "" }

// ValidSteamID reports whether id has 17 digits and the fixed prefix.
func ValidSteamID(id string) bool {
	if len(id) != 17 || !strings.HasPrefix(id, SteamIDPrefix) {
		return false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ValidateProfileURL parses raw OCR text into a canonical profile URL that
// always ends with a slash.
func ValidateProfileURL(raw string) (ProfileURL, bool) {
	s := strings.Join(strings.Fields(raw), "")
	if !strings.Contains(s, ProfileDomain) {
		return ProfileURL{}, false
	}
	if m := profilesRe.FindStringSubmatch(s); m != nil {
		if !ValidSteamID(m[1]) {
			return ProfileURL{}, false
		}
		return ProfileURL{URL: "https://" + ProfileDomain + "/profiles/" + m[1] + "/", SteamID: m[1]}, true
	}
	if m := vanityRe.FindStringSubmatch(s); m != nil {
		slug := strings.Trim(m[1], ".")
		if slug == "" {
			return ProfileURL{}, false
		}
		return ProfileURL{URL: "https://" + ProfileDomain + "/id/" + slug + "/", Vanity: slug}, true
	}
	return ProfileURL{}, false
}

// PickProfileURL validates candidates and prefers the first numeric-id URL,
// then the first vanity URL.
func PickProfileURL(candidates ...string) (ProfileURL, bool) {
	var first ProfileURL
	found := false
	for _, c := range candidates {
		p, ok := ValidateProfileURL(c)
		if !ok {
			continue
		}
		if p.Numeric() {
			return p, true
		}
		if !found {
			first, found = p, true
		}
	}
	return first, found
}
