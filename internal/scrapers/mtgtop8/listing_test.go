package mtgtop8

import (
	"context"
	"mtgstats-backend/internal/components/telemetry"
	"mtgstats-backend/internal/mtg"
	"mtgstats-backend/pkg/htmlutil"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func readHtmlFixture(t testing.TB, name string) htmlutil.Document {
	t.Helper()
	f, err := os.Open(filepath.Join("testdata", name))
	require.NoError(t, err)
	defer f.Close()
	doc, err := htmlutil.NewDocument(f)
	require.NoError(t, err)
	return doc
}

func TestParseTournamentsRow(t *testing.T) {
	doc, err := htmlutil.NewDocumentFromString(`<table>
<tr><td class="w_title">Last 1 events</td></tr>
<tr height="30" class="hover_tr"><td width="70%"><a href="event?e=15191&amp;f=MO">MTGO Competitive Modern Constructed League</a> <img src="graph/new.png"></td><td width="15%" class="O16" align="center"><img src="graph/star.png"></td><td align="right" width="15%" class="S10">06/04/17</td></tr>
</table>`)
	require.NoError(t, err)

	tel := telemetry.NewRecorder()
	result := slices.Collect(ParseTournaments(context.Background(), tel, time.UTC, doc))

	expected := []mtg.TournamentDescriptor{{
		ExternalID: "15191",
		Name:       "MTGO Competitive Modern Constructed League",
		URL:        "http://mtgtop8.com/event?e=15191&f=MO",
		EventDate:  time.Date(2017, time.April, 6, 0, 0, 0, 0, time.UTC),
		FormatCode: "MO",
	}}
	diff := cmp.Diff(expected, result)
	if diff != "" {
		t.Fatal(diff)
	}
	require.Empty(t, tel.Reports(telemetry.REPORT_WARNING, ""))
}

func TestParseTournamentsListing(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)

	doc := readHtmlFixture(t, "format_mo.html")
	tel := telemetry.NewRecorder()

	var ids []string
	for tournament := range ParseTournaments(context.Background(), tel, paris, doc) {
		ids = append(ids, tournament.ExternalID)
		require.Equal(t, "MO", tournament.FormatCode)
		require.Equal(t, paris, tournament.EventDate.Location())
	}

	// document order, the rows after the first link-less row are never read
	require.Equal(t, []string{"15191", "15180", "15170"}, ids)
	require.Len(t, tel.Reports(telemetry.REPORT_WARNING, report_parse_tournaments), 2)
}

func TestParseTournamentsStopsEarly(t *testing.T) {
	doc := readHtmlFixture(t, "format_mo.html")

	count := 0
	for range ParseTournaments(context.Background(), telemetry.NewRecorder(), time.UTC, doc) {
		count++
		break
	}
	require.Equal(t, 1, count)
}

func TestParseTournamentsMissingHeader(t *testing.T) {
	doc, err := htmlutil.NewDocumentFromString(`<table><tr><td><a href="event?e=1&f=MO">x</a></td></tr></table>`)
	require.NoError(t, err)

	tel := telemetry.NewRecorder()
	result := slices.Collect(ParseTournaments(context.Background(), tel, time.UTC, doc))
	require.Empty(t, result)
	require.Len(t, tel.Reports(telemetry.REPORT_WARNING, report_parse_tournaments), 1)
}

func TestTournamentIdFromUrl(t *testing.T) {
	id, code, ok := TournamentIdFromUrl("http://mtgtop8.com/event?e=15191&f=MO")
	require.True(t, ok)
	require.Equal(t, "15191", id)
	require.Equal(t, "MO", code)

	_, _, ok = TournamentIdFromUrl("http://mtgtop8.com/search")
	require.False(t, ok)
}
