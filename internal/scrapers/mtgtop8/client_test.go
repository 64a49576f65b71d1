package mtgtop8

import (
	"context"
	"errors"
	"mtgstats-backend/internal/components/telemetry"
	"mtgstats-backend/pkg/restyutil"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newFixtureServer(t *testing.T) *httptest.Server {
	t.Helper()

	serveFile := func(w http.ResponseWriter, name string) {
		content, err := os.ReadFile(filepath.Join("testdata", name))
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write(content)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/format", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("f") != "MO" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		serveFile(w, "format_mo.html")
	})
	mux.HandleFunc("/event", func(w http.ResponseWriter, r *http.Request) {
		serveFile(w, "event_15191.html")
	})
	mux.HandleFunc("/mtgo", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("d") == "503" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		serveFile(w, "deck_sultai.txt")
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestClient(t *testing.T) {
	server := newFixtureServer(t)
	tel := telemetry.NewRecorder()

	client, err := NewClient(ClientOptions{BaseUrl: server.URL + "/"}, tel)
	require.NoError(t, err)

	ctx := context.Background()

	listing, err := client.FormatPage(ctx, "MO")
	require.NoError(t, err)
	tournaments := slices.Collect(ParseTournaments(ctx, tel, time.UTC, listing))
	require.Len(t, tournaments, 3)

	// the parsed url points at mtgtop8 itself, only its path is requested
	detail, err := client.TournamentPage(ctx, tournaments[0].URL)
	require.NoError(t, err)
	decks := slices.Collect(ParseDecks(ctx, tel, detail))
	require.Len(t, decks, 3)

	export, err := client.DeckExport(ctx, decks[0].ExternalDeckID)
	require.NoError(t, err)
	deck := ParseDeck(tel, export, "MO")
	require.Equal(t, "Sultai", deck.Name)

	_, err = client.FormatPage(ctx, "XX")
	var statusErr restyutil.StatusError
	require.True(t, errors.As(err, &statusErr))
	require.False(t, statusErr.Retryable())

	_, err = client.DeckExport(ctx, "503")
	require.True(t, errors.As(err, &statusErr))
	require.True(t, statusErr.Retryable())
}
