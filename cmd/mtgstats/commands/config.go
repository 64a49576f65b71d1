package commands

import (
	"errors"
	"log/slog"
	"mtgstats-backend/internal/components/telemetry"
	"mtgstats-backend/internal/db"
	"mtgstats-backend/internal/harvest"
	"mtgstats-backend/internal/jobs"
	"mtgstats-backend/internal/scrapers/mkm"
	"mtgstats-backend/internal/scrapers/mtgapi"
	"mtgstats-backend/internal/scrapers/mtgtop8"
	"mtgstats-backend/pkg/configutil"
	"os"
)

// Schedules are cron specs evaluated in the configured timezone, an empty
// spec disables the harvest.
type Schedules struct {
	Formats   string `json:"formats"`
	Relevance string `json:"relevance"`
	Prices    string `json:"prices"`
	Sets      string `json:"sets"`
}

type Config struct {
	// Timezone is the IANA location event dates are read in.
	Timezone string            `json:"timezone"`
	Database db.Config         `json:"database"`
	Broker   jobs.BrokerConfig `json:"broker"`
	Workers  int               `json:"workers"`
	Harvest  harvest.Options   `json:"harvest"`

	Mtgtop8 mtgtop8.ClientOptions `json:"mtgtop8"`
	Mkm     mkm.ClientOptions     `json:"mkm"`
	MtgApi  mtgapi.ClientOptions  `json:"mtgapi"`

	// OverridesFile is merged over the embedded card name overrides.
	OverridesFile string           `json:"overrides_file"`
	Schedules     Schedules        `json:"schedules"`
	Telemetry     telemetry.Config `json:"telemetry"`
}

var defaultSchedules = Schedules{
	Formats:   "0 3 * * *",
	Relevance: "0 5 * * *",
	Prices:    "0 6 * * *",
	Sets:      "0 2 * * 1",
}

func readConfig() (Config, error) {
	cfg, err := configutil.ReadConfig[Config](configPath)
	if errors.Is(err, os.ErrNotExist) {
		slog.Warn("no config file found, using defaults", "path", configPath)
		err = nil
	}
	if err != nil {
		return Config{}, err
	}

	if cfg.Database.File == "" && cfg.Database.Url == "" {
		cfg.Database.File = "mtgstats.db"
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	if cfg.Schedules == (Schedules{}) {
		cfg.Schedules = defaultSchedules
	}
	return cfg, nil
}
