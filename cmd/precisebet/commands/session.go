package commands

import (
	"precisebet/lib/fetch"
	"precisebet/lib/restyutil"
	"precisebet/lib/scrapers"
	"precisebet/lib/scrapers/handicap"
	"precisebet/lib/scrapers/recent"
	"precisebet/lib/scrapers/team"
	"precisebet/lib/useragent"
	"precisebet/services/export"
	"precisebet/services/generate"
	"precisebet/services/okooo"
	"precisebet/services/update"
)

// session is one scraping identity: a cookie jar and a user agent shared by
// every scraper of a command.
type session struct {
	agent   *useragent.Sticky
	options scrapers.Options
}

func newSession() (session, error) {
	opts := cfg.Fetch.options()
	if cfg.Fetch.DumpDir != "" {
		output, err := restyutil.NewFilesystemOutput(cfg.Fetch.DumpDir)
		if err != nil {
			return session{}, err
		}
		opts.Output = output
	}
	client, err := fetch.NewClient(opts)
	if err != nil {
		return session{}, err
	}

	var base useragent.Source = useragent.Random{}
	if cfg.Fetch.UserAgent != "" {
		base = useragent.Fixed(cfg.Fetch.UserAgent)
	}
	agent := useragent.NewSticky(base)

	return session{
		agent: agent,
		options: scrapers.Options{
			Fetcher:  client,
			Agent:    agent,
			Attempts: cfg.Fetch.Attempts,
		},
	}, nil
}

func (s session) generator() generate.Service {
	return generate.Service{
		Project:    project(),
		Options:    s.options,
		ListingURL: cfg.URLs.Listing,
	}
}

func (s session) updater() update.Service {
	return update.Service{
		Project: project(),
		Agent:   s.agent,
	}
}

func (s session) valueAction() update.ValueAction {
	return update.ValueAction{Scraper: team.Scraper{
		Options: s.options,
		BaseURL: cfg.URLs.Team,
	}}
}

func (s session) handicapAction() update.HandicapAction {
	return update.HandicapAction{Scraper: handicap.Scraper{
		Options:       s.options,
		URLFormat:     cfg.URLs.Handicap,
		ZeroOnMissing: cfg.Update.ZeroOnHandicapMissing,
	}}
}

func (s session) recentAction() update.RecentAction {
	return update.RecentAction{Scraper: recent.Scraper{
		Options:         s.options,
		PageURLFormat:   cfg.URLs.RecentPage,
		DetailURLFormat: cfg.URLs.RecentDetail,
	}}
}

func (s session) actions() map[string]update.Action {
	return update.Actions(s.valueAction(), s.handicapAction(), s.recentAction())
}

func (s session) okoooService() okooo.Service {
	return okooo.Service{
		Project: project(),
		Options: s.options,
		URL:     cfg.URLs.Okooo,
	}
}

func exporter() export.Service {
	return export.Service{Project: project()}
}
