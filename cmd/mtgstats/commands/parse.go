package commands

import (
	"context"
	"fmt"
	"mtgstats-backend/internal/components/chrono"
	"mtgstats-backend/internal/components/telemetry"
	"mtgstats-backend/internal/scrapers/mkm"
	"mtgstats-backend/internal/scrapers/mtgtop8"
	"mtgstats-backend/pkg/htmlutil"
	"mtgstats-backend/pkg/serviceutil"
	"os"
	"slices"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var parseFormat string

func init() {
	parseDeckCmd.Flags().StringVar(&parseFormat, "format", "", "The format code used when the export does not name one.")
	parseCmd.AddCommand(parseDeckCmd, parseTournamentsCmd, parseEventCmd, parsePriceCmd)
	rootCmd.AddCommand(parseCmd)
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

func readDocument(path string) htmlutil.Document {
	f, err := os.Open(path)
	if err != nil {
		serviceutil.Fatal("open "+path, err)
	}
	defer f.Close()
	doc, err := htmlutil.NewDocument(f)
	if err != nil {
		serviceutil.Fatal("parse "+path, err)
	}
	return doc
}

var parseCmd = &cobra.Command{
	Use:   "parse",
	Short: "Parses saved pages and exports without touching the network or the database.",
}

var parseDeckCmd = &cobra.Command{
	Use:   "deck <file> [--format MO]",
	Short: "Parses a deck export.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		content, err := os.ReadFile(args[0])
		if err != nil {
			serviceutil.Fatal("read deck", err)
		}
		deck := mtgtop8.ParseDeck(telemetry.SlogAPI{}, string(content), parseFormat)

		fmt.Printf("%s by %s (%s)\n", deck.Name, deck.Owner, deck.Format)
		t := newTable()
		t.AppendHeader(table.Row{"Section", "Quantity", "Card"})
		for _, section := range []struct {
			name  string
			cards map[string]int
		}{
			{"main", deck.Main},
			{"sideboard", deck.Sideboard},
		} {
			names := make([]string, 0, len(section.cards))
			for name := range section.cards {
				names = append(names, name)
			}
			slices.Sort(names)
			for _, name := range names {
				t.AppendRow(table.Row{section.name, section.cards[name], name})
			}
		}
		main, sideboard := deck.Count()
		t.AppendFooter(table.Row{"", main + sideboard, fmt.Sprintf("%d main, %d sideboard", main, sideboard)})
		t.Render()
	},
}

var parseTournamentsCmd = &cobra.Command{
	Use:   "tournaments <file>",
	Short: "Parses a format page into its last tournaments.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		clock, err := chrono.NewStandardImpl("")
		if err != nil {
			serviceutil.Fatal("load timezone", err)
		}
		doc := readDocument(args[0])

		t := newTable()
		t.AppendHeader(table.Row{"Id", "Date", "Format", "Name", "Url"})
		for tournament := range mtgtop8.ParseTournaments(context.Background(), telemetry.SlogAPI{}, clock.Location(), doc) {
			t.AppendRow(table.Row{
				tournament.ExternalID,
				tournament.EventDate.Format(time.DateOnly),
				tournament.FormatCode,
				tournament.Name,
				tournament.URL,
			})
		}
		t.Render()
	},
}

var parseEventCmd = &cobra.Command{
	Use:   "event <file>",
	Short: "Parses a tournament page into its deck results.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		doc := readDocument(args[0])

		t := newTable()
		t.AppendHeader(table.Row{"Position", "Deck", "Name", "Player", "Format"})
		for deck := range mtgtop8.ParseDecks(context.Background(), telemetry.SlogAPI{}, doc) {
			t.AppendRow(table.Row{deck.Position, deck.ExternalDeckID, deck.DeckName, deck.Player, deck.FormatCode})
		}
		t.Render()
	},
}

func formatOptional[T any](value *T) string {
	if value == nil {
		return "-"
	}
	return fmt.Sprint(*value)
}

var parsePriceCmd = &cobra.Command{
	Use:   "price <file>",
	Short: "Parses a market product page.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		snapshot, err := mkm.ParsePricePage(readDocument(args[0]))
		if err != nil {
			serviceutil.Fatal("parse price page", err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"Available", "Min", "Mean", "Foils", "Min foil"})
		t.AppendRow(table.Row{
			snapshot.AvailableItems,
			formatOptional(snapshot.MinPrice),
			formatOptional(snapshot.MeanPrice),
			formatOptional(snapshot.AvailableFoils),
			formatOptional(snapshot.MinFoil),
		})
		t.Render()
	},
}
