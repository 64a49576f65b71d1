package cardname

import (
	_ "embed"
	"fmt"
	"mtgstats-backend/pkg/configutil"
	"os"
)

//go:embed overrides.json5
var defaultOverrides []byte

// VersionRule gives a printing the "(Version N)" market suffix. Set and
// Number only narrow the match when they are set.
type VersionRule struct {
	Name    string `json:"name"`
	Set     string `json:"set"`
	Number  string `json:"number"`
	Version int    `json:"version"`
}

func (r VersionRule) matches(name, set, number string) bool {
	if r.Name != name {
		return false
	}
	if r.Set != "" && r.Set != set {
		return false
	}
	if r.Number != "" && r.Number != number {
		return false
	}
	return true
}

type Overrides struct {
	MarketNames      map[string]string `json:"market_names"`
	VersionRules     []VersionRule     `json:"version_rules"`
	MultiFaceNames   []string          `json:"multi_face_names"`
	IrrelevantSets   []string          `json:"irrelevant_sets"`
	SetMarketNames   map[string]string `json:"set_market_names"`
	PriceUrlTemplate string            `json:"price_url_template"`
}

// DefaultOverrides returns the table shipped with the binary.
func DefaultOverrides() (Overrides, error) {
	return configutil.Merge(Overrides{}, defaultOverrides)
}

// LoadOverrides merges the json5 file at path over the default table, entries
// of the file win and lists are appended. An empty path returns the default table.
func LoadOverrides(path string) (Overrides, error) {
	overrides, err := DefaultOverrides()
	if err != nil {
		return Overrides{}, fmt.Errorf("default overrides: %w", err)
	}
	if path == "" {
		return overrides, nil
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		return Overrides{}, err
	}
	overrides, err = configutil.Merge(overrides, contents)
	if err != nil {
		return Overrides{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return overrides, nil
}
