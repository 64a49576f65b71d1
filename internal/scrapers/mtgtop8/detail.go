package mtgtop8

import (
	"context"
	"fmt"
	"iter"
	"mtgstats-backend/internal/components/telemetry"
	"mtgstats-backend/internal/mtg"
	"mtgstats-backend/pkg/htmlutil"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

const (
	report_parse_decks = "parse-decks"
)

var deckUrlRegex = regexp.MustCompile(`\?e=(\d{1,6})&d=(\d{1,7})&f=([A-Z]{2,3})`)

// ParseDecks lazily yields the deck results of a tournament page.
//
// Every player label (div.G11) sits in a result block whose element children
// are, in order: the position, the deck link and the player. A row whose
// position or link cannot be read is reported and dropped, the others are
// still yielded.
func ParseDecks(ctx context.Context, tel telemetry.API, doc htmlutil.Locator) iter.Seq[mtg.DeckResultDescriptor] {
	return func(yield func(mtg.DeckResultDescriptor) bool) {
		seen := map[*html.Node]struct{}{}
		doc.Locate("div.G11").EachWithBreak(func(_ int, label *goquery.Selection) bool {
			block := label.Parent()
			if block.Length() == 0 {
				return true
			}
			if _, ok := seen[block.Get(0)]; ok {
				return true
			}
			seen[block.Get(0)] = struct{}{}

			deck, err := parseDeckRow(ctx, block)
			if err != nil {
				tel.ReportBroken(report_parse_decks, err)
				return true
			}
			return yield(deck)
		})
	}
}

func parseDeckRow(ctx context.Context, block *goquery.Selection) (mtg.DeckResultDescriptor, error) {
	cells := block.Children()
	if cells.Length() < 3 {
		return mtg.DeckResultDescriptor{}, fmt.Errorf("expected 3 result cells, got %d", cells.Length())
	}

	positionText := htmlutil.CleanText(cells.Eq(0).Text())
	position, err := ParsePosition(positionText)
	if err != nil {
		return mtg.DeckResultDescriptor{}, err
	}

	anchors := htmlutil.GetAnchors(ctx, BaseUrl, cells.Eq(1).Find("a[href]"))
	if len(anchors) == 0 {
		return mtg.DeckResultDescriptor{}, fmt.Errorf("no deck link for position %d", position)
	}
	link := anchors[0]

	groups := deckUrlRegex.FindStringSubmatch(link.Href)
	if len(groups) < 4 {
		return mtg.DeckResultDescriptor{}, fmt.Errorf("unexpected deck link %q", link.Href)
	}

	return mtg.DeckResultDescriptor{
		ExternalDeckID: groups[2],
		TournamentID:   groups[1],
		FormatCode:     groups[3],
		Player:         htmlutil.CleanText(cells.Eq(2).Text()),
		DeckName:       htmlutil.CleanText(cells.Eq(1).Text()),
		Link:           link.Url.String(),
		Position:       position,
	}, nil
}

// ParsePosition reads a finishing position, "5-8" keeps the second bound.
//
// TODO: confirm with the stats consumers whether a shared rank should read as 5.
func ParsePosition(text string) (int, error) {
	if _, after, ok := strings.Cut(text, "-"); ok {
		text = after
	}
	position, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, fmt.Errorf("could not convert deck position %q to integer: %w", text, err)
	}
	if position < 1 {
		return 0, fmt.Errorf("deck position %d is not positive", position)
	}
	return position, nil
}
