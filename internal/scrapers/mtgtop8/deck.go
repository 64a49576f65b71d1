package mtgtop8

import (
	"mtgstats-backend/internal/components/telemetry"
	"mtgstats-backend/internal/mtg"
	"regexp"
	"strconv"
	"strings"
)

const (
	report_parse_deck_line = "parse-deck.line"
)

var (
	deckHeaderRegex = regexp.MustCompile(`^//\s*(NAME|CREATOR|FORMAT)\s*:(.*)$`)
	// [SB:] <quantity> [<[set-code]>] <card name>
	deckCardLineRegex = regexp.MustCompile(`^(SB:\s*)?(\S+)\s+(?:\[[^\]]*\]\s*)?(.*)$`)
)

// ParseDeck parses a deck export (the mtgo / mwDeck text flavor) into a DeckList.
//
// fallbackFormat is used when the export has no FORMAT header or a blank one.
// Malformed lines are reported and skipped, they never abort the parse.
func ParseDeck(tel telemetry.API, content, fallbackFormat string) mtg.DeckList {
	deck := mtg.NewDeckList()
	deck.Format = fallbackFormat

	sideboard := false
	for i, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "//") {
			parseDeckHeader(&deck, line)
			continue
		}
		if strings.EqualFold(line, "sideboard") || strings.EqualFold(line, "sideboard:") {
			sideboard = true
			continue
		}

		quantity, names, lineSideboard, ok := parseCardLine(line)
		if !ok {
			tel.ReportWarning(report_parse_deck_line, i+1, line)
			continue
		}

		bucket := deck.Main
		if sideboard || lineSideboard {
			bucket = deck.Sideboard
		}
		for _, name := range names {
			bucket[name] += quantity
		}
	}

	return deck
}

func parseDeckHeader(deck *mtg.DeckList, line string) {
	groups := deckHeaderRegex.FindStringSubmatch(line)
	if len(groups) < 3 {
		return
	}
	value := strings.TrimSpace(groups[2])

	switch groups[1] {
	case "NAME":
		deck.Name = value
	case "CREATOR":
		deck.Owner = value
	case "FORMAT":
		if value == "" {
			return
		}
		if code, ok := mtg.FormatCodeFromName(value); ok {
			value = code
		}
		deck.Format = value
	}
}

func parseCardLine(line string) (quantity int, names []string, sideboard bool, ok bool) {
	groups := deckCardLineRegex.FindStringSubmatch(line)
	if len(groups) < 4 {
		return 0, nil, false, false
	}

	quantity, err := strconv.Atoi(groups[2])
	if err != nil || quantity <= 0 {
		return 0, nil, false, false
	}

	names = splitCardName(groups[3])
	if len(names) == 0 {
		return 0, nil, false, false
	}

	return quantity, names, groups[1] != "", true
}

// splitCardName splits "Wear / Tear" into its faces. Only a slash that stands
// alone between whitespace separates names, "Fire/Ice" is kept whole.
func splitCardName(name string) []string {
	var names []string
	var current []string
	flush := func() {
		if len(current) > 0 {
			names = append(names, strings.Join(current, " "))
			current = nil
		}
	}

	for _, token := range strings.Fields(name) {
		if token == "/" || token == "//" {
			flush()
			continue
		}
		current = append(current, token)
	}
	flush()

	return names
}
