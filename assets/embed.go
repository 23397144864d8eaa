package assets

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/bytedance/sonic"
)

// CatalogJSON contains the raw bytes of the built-in template catalog.
//
//go:embed catalog.json
var CatalogJSON []byte

// Dialog names an error dialog template and the OK button it maps to.
// A zero OKX/OKY means the caller falls back to the template center.
type Dialog struct {
	Template string `json:"template"`
	OKX      int    `json:"ok_x,omitempty"`
	OKY      int    `json:"ok_y,omitempty"`
}

// Catalog lists the template names the detectors know about.
type Catalog struct {
	Medals         []string           `json:"medals"`
	Unwanted       []string           `json:"unwanted"`
	Sympathies     []string           `json:"sympathies"`
	Dialogs        []Dialog           `json:"dialogs"`
	Thresholds     map[string]float64 `json:"thresholds"`
	NicknameGlyphs []string           `json:"nickname_glyphs"`
}

var (
	catalogOnce sync.Once
	catalog     Catalog
	catalogErr  error
)

// LoadCatalog decodes the embedded catalog once and returns a copy of it.
func LoadCatalog() (Catalog, error) {
	catalogOnce.Do(func() {
		if len(CatalogJSON) == 0 {
			catalogErr = fmt.Errorf("embedded catalog.json is empty")
			return
		}
		catalogErr = sonic.Unmarshal(CatalogJSON, &catalog)
	})
	if catalogErr != nil {
		return Catalog{}, catalogErr
	}
	return catalog.clone(), nil
}

// MustCatalog is LoadCatalog for callers that treat a broken embed as fatal.
func MustCatalog() Catalog {
	c, err := LoadCatalog()
	if err != nil {
		panic(fmt.Sprintf("assets: decode catalog: %v", err))
	}
	return c
}

func (c Catalog) clone() Catalog {
	out := Catalog{
		Medals:         append([]string(nil), c.Medals...),
		Unwanted:       append([]string(nil), c.Unwanted...),
		Sympathies:     append([]string(nil), c.Sympathies...),
		Dialogs:        append([]Dialog(nil), c.Dialogs...),
		NicknameGlyphs: append([]string(nil), c.NicknameGlyphs...),
		Thresholds:     make(map[string]float64, len(c.Thresholds)),
	}
	for k, v := range c.Thresholds {
		out.Thresholds[k] = v
	}
	return out
}
