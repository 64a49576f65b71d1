package mtgtop8

import (
	"context"
	"mtgstats-backend/internal/components/telemetry"
	"mtgstats-backend/internal/mtg"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestParseDecks(t *testing.T) {
	doc := readHtmlFixture(t, "event_15191.html")
	tel := telemetry.NewRecorder()

	result := slices.Collect(ParseDecks(context.Background(), tel, doc))

	expected := []mtg.DeckResultDescriptor{
		{
			ExternalDeckID: "295712",
			TournamentID:   "15191",
			FormatCode:     "MO",
			Player:         "Sebastian Ziller",
			DeckName:       "Sultai",
			Link:           "http://mtgtop8.com/event?e=15191&d=295712&f=MO",
			Position:       1,
		},
		{
			ExternalDeckID: "295713",
			TournamentID:   "15191",
			FormatCode:     "MO",
			Player:         "Luca Chieregato",
			DeckName:       "Abzan",
			Link:           "http://mtgtop8.com/event?e=15191&d=295713&f=MO",
			Position:       2,
		},
		{
			ExternalDeckID: "295716",
			TournamentID:   "15191",
			FormatCode:     "MO",
			Player:         "Mani_Davoudi",
			DeckName:       "Affinity",
			Link:           "http://mtgtop8.com/event?e=15191&d=295716&f=MO",
			Position:       8,
		},
	}
	diff := cmp.Diff(expected, result)
	if diff != "" {
		t.Fatal(diff)
	}

	// "abc" position and the archetype link
	require.Len(t, tel.Reports(telemetry.REPORT_BROKEN, report_parse_decks), 2)
}

func TestParsePosition(t *testing.T) {
	table := []struct {
		input    string
		expected int
		fails    bool
	}{
		{input: "1", expected: 1},
		{input: "3", expected: 3},
		{input: "5-8", expected: 8},
		{input: "9 - 16", expected: 16},
		{input: "abc", fails: true},
		{input: "0", fails: true},
		{input: "", fails: true},
	}

	for _, row := range table {
		position, err := ParsePosition(row.input)
		if row.fails {
			require.Error(t, err, row.input)
			continue
		}
		require.NoError(t, err, row.input)
		require.Equal(t, row.expected, position)
	}
}
