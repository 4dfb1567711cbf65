package commands

import (
	"time"

	"precisebet/lib/fetch"
	"precisebet/lib/schedule"
	"precisebet/lib/scrapers/handicap"
	"precisebet/lib/scrapers/listing"
	"precisebet/lib/scrapers/okooo"
	"precisebet/lib/scrapers/recent"
	"precisebet/lib/scrapers/team"
	"precisebet/services/export"
)

type FetchConfig struct {
	// Attempts per request, 0 retries until interrupted.
	Attempts  int     `json:"attempts" validate:"gte=0"`
	RetryWait float64 `json:"retry_wait" validate:"gte=0"`
	Timeout   float64 `json:"timeout" validate:"gte=0"`
	// UserAgent pins the user agent, a random one is drawn per run otherwise.
	UserAgent        string `json:"user_agent"`
	CloudflareBypass bool   `json:"cloudflare_bypass"`
	// DumpDir receives every HTTP message when --verbose is set.
	DumpDir string `json:"dump_dir"`
}

type URLConfig struct {
	Listing      string `json:"listing" validate:"required,url"`
	Team         string `json:"team" validate:"required,url"`
	Handicap     string `json:"handicap" validate:"required"`
	RecentPage   string `json:"recent_page" validate:"required"`
	RecentDetail string `json:"recent_detail" validate:"required"`
	Okooo        string `json:"okooo" validate:"required,url"`
}

type UpdateConfig struct {
	Interval                 float64 `json:"interval" validate:"gte=0"`
	ExtraInterval            float64 `json:"extra_interval" validate:"gte=0"`
	ExtraIntervalProbability float64 `json:"extra_interval_probability" validate:"gte=0,lte=1"`
	IntervalOffsetRange      float64 `json:"interval_offset_range" validate:"gte=0"`
	LastUpdatedStatus        string  `json:"last_updated_status"`
	Status                   string  `json:"status"`
	BreakHours               float64 `json:"break_hours"`
	// ZeroOnHandicapMissing records zeros for matches without a handicap
	// table instead of failing the run.
	ZeroOnHandicapMissing bool `json:"zero_on_handicap_missing"`
	// DisableReadmit keeps rows last refreshed while a match was interrupted
	// out of the plan even after the match resumes.
	DisableReadmit bool `json:"disable_readmit"`
}

type FlowConfig struct {
	Interval     float64 `json:"interval" validate:"gte=0"`
	RetryTimes   int     `json:"retry_times" validate:"gte=0"`
	ExecuteTimes int     `json:"execute_times" validate:"gte=0"`
	ExportFormat string  `json:"export_format" validate:"oneof=csv html markdown sqlite xlsx"`
}

type OkoooConfig struct {
	// Interval is the wait between two periods in seconds.
	Interval float64 `json:"interval" validate:"gte=0"`
	Format   string  `json:"format" validate:"oneof=csv html markdown xlsx"`
}

type Config struct {
	ProjectPath string       `json:"project_path" validate:"required"`
	Fetch       FetchConfig  `json:"fetch"`
	URLs        URLConfig    `json:"urls"`
	Update      UpdateConfig `json:"update"`
	Flow        FlowConfig   `json:"flow"`
	Okooo       OkoooConfig  `json:"okooo"`
}

func DefaultConfig() Config {
	return Config{
		ProjectPath: "data",
		Fetch: FetchConfig{
			RetryWait: 1,
			Timeout:   30,
		},
		URLs: URLConfig{
			Listing:      listing.DefaultURL,
			Team:         team.DefaultURL,
			Handicap:     handicap.DefaultURL,
			RecentPage:   recent.DefaultPageURL,
			RecentDetail: recent.DefaultDetailURL,
			Okooo:        okooo.DefaultURL,
		},
		Update: UpdateConfig{
			Interval:            seconds(schedule.DefaultNormal),
			ExtraInterval:       seconds(schedule.DefaultExtended),
			IntervalOffsetRange: seconds(schedule.DefaultOffset),
			LastUpdatedStatus:   schedule.DefaultLastUpdatedStatus,
			Status:              schedule.DefaultStatus,
			BreakHours:          schedule.DefaultBreakHours,
		},
		Flow: FlowConfig{
			RetryTimes:   3,
			ExecuteTimes: 1,
			ExportFormat: string(export.FormatHTML),
		},
		Okooo: OkoooConfig{
			Interval: 5,
			Format:   string(export.FormatXLSX),
		},
	}
}

func seconds(d time.Duration) float64 {
	return d.Seconds()
}

func duration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

func (c FetchConfig) options() fetch.Options {
	return fetch.Options{
		Timeout:   duration(c.Timeout),
		RetryWait: duration(c.RetryWait),
		Bypass:    c.CloudflareBypass,
	}
}
