package mtgtop8

import (
	"encoding/json"
	"mtgstats-backend/internal/components/telemetry"
	"mtgstats-backend/internal/mtg"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func readDeckFixture(t testing.TB, name string) (string, mtg.DeckList) {
	t.Helper()

	content, err := os.ReadFile(filepath.Join("testdata", "deck_"+name+".txt"))
	require.NoError(t, err)

	expectedJson, err := os.ReadFile(filepath.Join("testdata", "deck_"+name+".json"))
	require.NoError(t, err)
	var expected mtg.DeckList
	require.NoError(t, json.Unmarshal(expectedJson, &expected))
	if expected.Sideboard == nil {
		expected.Sideboard = map[string]int{}
	}

	return string(content), expected
}

func TestParseDeckFixtures(t *testing.T) {
	for _, name := range []string{"sultai", "abzan", "affinity"} {
		t.Run(name, func(t *testing.T) {
			content, expected := readDeckFixture(t, name)

			tel := telemetry.NewRecorder()
			result := ParseDeck(tel, content, "MO")

			diff := cmp.Diff(expected, result)
			if diff != "" {
				t.Fatal(diff)
			}
			require.Empty(t, tel.Reports(telemetry.REPORT_WARNING, ""))
		})
	}
}

func TestParseDeckDeterministic(t *testing.T) {
	content, _ := readDeckFixture(t, "affinity")

	first := ParseDeck(telemetry.NewRecorder(), content, "MO")
	second := ParseDeck(telemetry.NewRecorder(), content, "MO")
	require.Equal(t, first, second)

	main, sideboard := first.Count()
	require.Equal(t, 60, main)
	require.Equal(t, 16, sideboard)
}

func TestParseDeckSplitCards(t *testing.T) {
	content := `
2 [DGM] Wear / Tear
1 Fire/Ice
1 [AKH] Commit // Memory
SB: 1 [DGM] Wear / Tear
`
	result := ParseDeck(telemetry.NewRecorder(), content, "LE")

	require.Equal(t, map[string]int{
		"Wear":     2,
		"Tear":     2,
		"Fire/Ice": 1,
		"Commit":   1,
		"Memory":   1,
	}, result.Main)
	require.Equal(t, map[string]int{
		"Wear": 1,
		"Tear": 1,
	}, result.Sideboard)
	require.Equal(t, "LE", result.Format)
}

func TestParseDeckSideboardSection(t *testing.T) {
	content := `// NAME : Burn
// CREATOR : someone
// FORMAT : Legacy
4 Lightning Bolt
2 Lightning Bolt

Sideboard
3 Smash to Smithereens
`
	result := ParseDeck(telemetry.NewRecorder(), content, "MO")

	require.Equal(t, "Burn", result.Name)
	require.Equal(t, "someone", result.Owner)
	require.Equal(t, "LE", result.Format)
	require.Equal(t, map[string]int{"Lightning Bolt": 6}, result.Main)
	require.Equal(t, map[string]int{"Smash to Smithereens": 3}, result.Sideboard)
}

func TestParseDeckMalformedLines(t *testing.T) {
	content := `4 Tarmogoyf
x [FUT] Tarmogoyf
0 [FUT] Tarmogoyf
-1 Dark Confidant
lonely
3 [RAV]
`
	tel := telemetry.NewRecorder()
	result := ParseDeck(tel, content, "MO")

	require.Equal(t, map[string]int{"Tarmogoyf": 4}, result.Main)
	require.Empty(t, result.Sideboard)
	require.Len(t, tel.Reports(telemetry.REPORT_WARNING, report_parse_deck_line), 5)
}

func TestSplitCardName(t *testing.T) {
	table := []struct {
		input    string
		expected []string
	}{
		{input: "Tarmogoyf", expected: []string{"Tarmogoyf"}},
		{input: "Wear / Tear", expected: []string{"Wear", "Tear"}},
		{input: "Dusk // Dawn", expected: []string{"Dusk", "Dawn"}},
		{input: "Fire/Ice", expected: []string{"Fire/Ice"}},
		{input: "  Kalitas,  Traitor of Ghet ", expected: []string{"Kalitas, Traitor of Ghet"}},
		{input: " / ", expected: nil},
	}

	for _, row := range table {
		require.Equal(t, row.expected, splitCardName(row.input), row.input)
	}
}
