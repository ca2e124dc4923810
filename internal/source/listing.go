package source

import (
	"strings"

	"fitcal/internal/model"
	"fitcal/internal/table"
)

// Event listing scrape columns.
const (
	ColTitle    = "title"
	ColDateTime = "date_time"
	ColVenue    = "venue"
	ColAddress  = "address"
	ColLink     = "link"
)

// ListingCleaner turns scraped event listings into candidates, reading
// date_time with every shape the normalizer knows.
type ListingCleaner struct {
	opts Options
}

func NewListingCleaner(opts Options) *ListingCleaner {
	return &ListingCleaner{opts: opts}
}

func (c *ListingCleaner) Name() string { return model.SourceListing }

func (c *ListingCleaner) Clean(t table.Table) Result {
	res := newResult()
	parser := c.opts.parser()
	for i, row := range t.Rows {
		raw := row.Get(ColDateTime)
		start, end, ok := parser.Parse(raw)
		if !ok {
			res.drop(c.Name(), i, model.ReasonBadStart, raw)
			continue
		}
		link := row.Get(ColLink)
		res.Events = append(res.Events, model.CanonicalEvent{
			Start:          start,
			End:            end,
			CandidateTitle: row.GetOr(ColTitle, UntitledEvent),
			Description:    link,
			Location:       joinNonEmpty("- ", row.Get(ColVenue), row.Get(ColAddress)),
			URL:            link,
			Source:         c.Name(),
		})
	}
	return res
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
