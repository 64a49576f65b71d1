package mtgtop8

import (
	"context"
	"iter"
	"mtgstats-backend/internal/components/telemetry"
	"mtgstats-backend/internal/mtg"
	"mtgstats-backend/pkg/htmlutil"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	report_parse_tournaments = "parse-tournaments"
)

var (
	lastEventsRegex    = regexp.MustCompile(`^Last \d+ events$`)
	tournamentUrlRegex = regexp.MustCompile(`event\?e=(\d{1,6})&f=([A-Z]{2,3})`)
)

const tournamentDateLayout = "02/01/06"

// ParseTournaments lazily yields the tournaments of a format listing page, in
// document order (most recent first).
//
// It locates the row introducing the "Last N events" list and walks its
// following sibling rows, a row without any link in its cells ends the list.
// Rows whose link or date do not match the expected shape are skipped.
func ParseTournaments(ctx context.Context, tel telemetry.API, loc *time.Location, doc htmlutil.Locator) iter.Seq[mtg.TournamentDescriptor] {
	return func(yield func(mtg.TournamentDescriptor) bool) {
		header := doc.Locate("tr").FilterFunction(func(_ int, s *goquery.Selection) bool {
			return lastEventsRegex.MatchString(htmlutil.CleanText(s.Text()))
		}).First()
		if header.Length() == 0 {
			tel.ReportWarning(report_parse_tournaments, "could not find last events row")
			return
		}

		header.NextAllFiltered("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
			anchors := htmlutil.GetAnchors(ctx, BaseUrl, row.Find("td a[href]"))
			if len(anchors) == 0 {
				return false
			}

			tournament, ok := parseTournamentRow(tel, loc, anchors[0], row)
			if !ok {
				return true
			}
			return yield(tournament)
		})
	}
}

func parseTournamentRow(tel telemetry.API, loc *time.Location, anchor htmlutil.Anchor, row *goquery.Selection) (mtg.TournamentDescriptor, bool) {
	groups := tournamentUrlRegex.FindStringSubmatch(anchor.Href)
	if len(groups) < 3 {
		tel.ReportWarning(report_parse_tournaments, "unexpected tournament link", anchor.Href)
		return mtg.TournamentDescriptor{}, false
	}

	dateText := strings.TrimSpace(row.Find("td.S10").First().Text())
	date, err := time.ParseInLocation(tournamentDateLayout, dateText, loc)
	if err != nil {
		tel.ReportWarning(report_parse_tournaments, "unexpected tournament date", anchor.Href, dateText)
		return mtg.TournamentDescriptor{}, false
	}

	return mtg.TournamentDescriptor{
		ExternalID: groups[1],
		Name:       anchor.Name,
		URL:        anchor.Url.String(),
		EventDate:  date,
		FormatCode: groups[2],
	}, true
}

// TournamentIdFromUrl extracts the external id and format code from a tournament url.
func TournamentIdFromUrl(link string) (id, formatCode string, ok bool) {
	groups := tournamentUrlRegex.FindStringSubmatch(link)
	if len(groups) < 3 {
		return "", "", false
	}
	return groups[1], groups[2], true
}

// BaseUrl is the root every relative mtgtop8 link is resolved against.
var BaseUrl = mustParseUrl("http://mtgtop8.com/")

func mustParseUrl(s string) *url.URL {
	u, err := url.Parse(s)
	if err != nil {
		panic(err)
	}
	return u
}
