package cardname

import (
	"context"
	"errors"
	"mtgstats-backend/internal/mtg"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryStore []string

func (s memoryStore) HasCardName(_ context.Context, name string) (bool, error) {
	return slices.Contains(s, name), nil
}

func (s memoryStore) CardNames(context.Context) ([]string, error) {
	return s, nil
}

func newTestResolver(t testing.TB, names ...string) *Resolver {
	t.Helper()
	overrides, err := DefaultOverrides()
	require.NoError(t, err)
	return NewResolver(memoryStore(names), overrides)
}

func TestDefaultOverrides(t *testing.T) {
	overrides, err := DefaultOverrides()
	require.NoError(t, err)

	require.Equal(t, "Æther Vial", overrides.MarketNames["Aether Vial"])
	require.Len(t, overrides.VersionRules, 6)
	require.Len(t, overrides.MultiFaceNames, 12)
	require.Equal(t, []string{"ATQ", "VMA", "MED", "ME2", "ME3", "ME4", "TPR"}, overrides.IrrelevantSets)
	require.Equal(t, "Modern Masters 2017", overrides.SetMarketNames["MM3"])
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overrides.json5")
	err := os.WriteFile(path, []byte(`{
		market_names: {"Lim-Dul's Vault": "Lim-Dûl's Vault"},
		irrelevant_sets: ["CED"],
	}`), 0600)
	require.NoError(t, err)

	overrides, err := LoadOverrides(path)
	require.NoError(t, err)
	require.Equal(t, "Æther Vial", overrides.MarketNames["Aether Vial"])
	require.Equal(t, "Lim-Dûl's Vault", overrides.MarketNames["Lim-Dul's Vault"])
	require.Contains(t, overrides.IrrelevantSets, "ATQ")
	require.Contains(t, overrides.IrrelevantSets, "CED")

	_, err = LoadOverrides(filepath.Join(t.TempDir(), "missing.json5"))
	require.True(t, errors.Is(err, os.ErrNotExist))
}

func TestResolve(t *testing.T) {
	resolver := newTestResolver(t, "Tarmogoyf", "Aether Vial", "Dusk", "Dawn", "Wear", "Tear")
	ctx := context.Background()

	table := []struct {
		input    string
		expected string
	}{
		{input: "Tarmogoyf", expected: "Tarmogoyf"},
		{input: " Tarmogoyf ", expected: "Tarmogoyf"},
		{input: "Æther Vial", expected: "Aether Vial"},
		{input: "Dusk // Dawn", expected: "Dusk"},
		{input: "Tear", expected: "Tear"},
	}
	for _, row := range table {
		name, err := resolver.Resolve(ctx, row.input)
		require.NoError(t, err, row.input)
		require.Equal(t, mtg.CardName{Name: row.expected}, name)
	}

	_, err := resolver.Resolve(ctx, "Tarmogoyff")
	require.True(t, errors.Is(err, ErrNotFound))
	require.Contains(t, err.Error(), `did you mean "Tarmogoyf"`)

	_, err = resolver.Resolve(ctx, "Completely Unknown")
	require.True(t, errors.Is(err, ErrNotFound))
	require.NotContains(t, err.Error(), "did you mean")

	_, err = resolver.Resolve(ctx, "  ")
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestMarketName(t *testing.T) {
	resolver := newTestResolver(t)

	table := []struct {
		card     mtg.Card
		expected string
	}{
		{card: mtg.Card{Name: "Tarmogoyf"}, expected: "Tarmogoyf"},
		{card: mtg.Card{Name: "Aether Vial"}, expected: "Æther Vial"},
		{card: mtg.Card{Name: "Atraxa, Praetors' Voice", Set: "C16"}, expected: "Atraxa, Praetors' Voice (Version 1)"},
		{card: mtg.Card{Name: "Kaya, Ghost Assassin", Number: "75"}, expected: "Kaya, Ghost Assassin (Version 1)"},
		{card: mtg.Card{Name: "Kaya, Ghost Assassin", Number: "222"}, expected: "Kaya, Ghost Assassin (Version 2)"},
		{card: mtg.Card{Name: "Meren of Clan Nel Toth", Set: "C15"}, expected: "Meren of Clan Nel Toth (Version 1)"},
		{card: mtg.Card{Name: "Meren of Clan Nel Toth", Set: "CMA"}, expected: "Meren of Clan Nel Toth"},
		{card: mtg.Card{Name: "Howlpack Alpha"}, expected: "Mayor of Avabruck / Howlpack Alpha"},
		{card: mtg.Card{Name: "Hanweir Battlements"}, expected: "Hanweir Battlements / Hanweir, the Writhing Township"},
		{
			card:     mtg.Card{Name: "Wear", Names: []string{"Wear", "Tear"}, Layout: mtg.LAYOUT_SPLIT},
			expected: "Wear // Tear",
		},
		{
			card:     mtg.Card{Name: "Commit", Names: []string{"Commit", "Memory"}, Layout: mtg.LAYOUT_AFTERMATH},
			expected: "Commit // Memory",
		},
		{
			card:     mtg.Card{Name: "Delver of Secrets", Names: []string{"Delver of Secrets", "Insectile Aberration"}, Layout: mtg.LAYOUT_DOUBLE_FACED},
			expected: "Delver of Secrets / Insectile Aberration",
		},
		{
			card:     mtg.Card{Name: "Bruna, the Fading Light", Names: []string{"Bruna, the Fading Light", "Gisela, the Broken Blade", "Brisela, Voice of Nightmares"}, Layout: mtg.LAYOUT_MELD},
			expected: "Bruna, the Fading Light / Gisela, the Broken Blade / Brisela, Voice of Nightmares",
		},
	}

	for _, row := range table {
		require.Equal(t, row.expected, resolver.MarketName(row.card))
	}
}

func TestPostProcessSet(t *testing.T) {
	resolver := newTestResolver(t)

	atq := mtg.Set{Code: "ATQ", Name: "Antiquities", IsRelevant: true}
	resolver.PostProcessSet(&atq)
	require.False(t, atq.IsRelevant)

	mm3 := mtg.Set{Code: "MM3", Name: "Modern Masters 2017 Edition", IsRelevant: true}
	resolver.PostProcessSet(&mm3)
	require.True(t, mm3.IsRelevant)
	require.Equal(t, "Modern Masters 2017", mm3.MarketName)
	require.Equal(t, "Modern Masters 2017", resolver.MarketSetName(mm3))

	require.Equal(t, "Dragon's Maze", resolver.MarketSetName(mtg.Set{Code: "DGM", Name: "Dragon's Maze"}))
}

func TestPriceUrl(t *testing.T) {
	resolver := newTestResolver(t)

	card := mtg.Card{Name: "Aether Vial", Set: "DST"}
	resolver.PostProcessCard(&card)
	require.Equal(t, "Æther Vial", card.MarketName)

	link := resolver.PriceUrl(card, mtg.Set{Code: "DST", Name: "Darksteel"})
	require.Equal(t, "https://www.cardmarket.com/en/Magic/Products/Singles/Darksteel/%C3%86ther+Vial", link)

	goyf := mtg.Card{Name: "Tarmogoyf"}
	resolver.PostProcessCard(&goyf)
	require.Empty(t, goyf.MarketName)
}
