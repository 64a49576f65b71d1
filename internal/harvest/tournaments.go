package harvest

import (
	"context"
	"errors"
	"fmt"
	"mtgstats-backend/internal/cardname"
	"mtgstats-backend/internal/db"
	"mtgstats-backend/internal/jobs"
	"mtgstats-backend/internal/mtg"
	"mtgstats-backend/internal/scrapers/mtgtop8"
	"slices"
)

const (
	report_get_last_tournaments = "get-last-tournaments"
	report_get_tournament       = "get-tournament"
	report_get_deck             = "get-deck"
)

type formatsPayload struct {
	Force bool `json:"force"`
}

type lastTournamentsPayload struct {
	FormatCode string `json:"format_code"`
	Force      bool   `json:"force"`
}

type tournamentPayload struct {
	Url string `json:"url"`
}

type deckPayload struct {
	DeckId     string `json:"deck_id"`
	FormatCode string `json:"format_code"`
}

func (o *Orchestrator) harvestFormats(ctx context.Context, payload formatsPayload) error {
	var errs []error
	for _, code := range mtg.FormatCodes() {
		err := o.dispatcher.Dispatch(ctx, KIND_GET_LAST_TOURNAMENTS, lastTournamentsPayload{
			FormatCode: code,
			Force:      payload.Force,
		})
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (o *Orchestrator) getLastTournaments(ctx context.Context, payload lastTournamentsPayload) error {
	_, err := mtg.FormatFromCode(payload.FormatCode)
	if err != nil {
		return jobs.Permanent(err)
	}

	doc, err := o.tournaments.FormatPage(ctx, payload.FormatCode)
	if err != nil {
		return err
	}

	for tournament := range mtgtop8.ParseTournaments(ctx, o.tel, o.time.Location(), doc) {
		created, err := o.store.GetOrCreateTournament(ctx, tournament)
		if errors.Is(err, mtg.ErrUnknownFormat) {
			o.tel.ReportWarning(report_get_last_tournaments, err, tournament.URL)
			continue
		}
		if err != nil {
			return err
		}
		if !created && !payload.Force {
			o.tel.ReportDebug("tournament already stored", tournament.ExternalID)
			continue
		}

		err = o.dispatcher.Dispatch(ctx, KIND_GET_TOURNAMENT, tournamentPayload{Url: tournament.URL})
		if err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) getTournament(ctx context.Context, payload tournamentPayload) error {
	doc, err := o.tournaments.TournamentPage(ctx, payload.Url)
	if err != nil {
		return err
	}

	stored := 0
	for deck := range mtgtop8.ParseDecks(ctx, o.tel, doc) {
		created, err := o.store.SaveDeckResult(ctx, deck)
		if errors.Is(err, db.ErrUnknownTournament) {
			// the listing job stores the tournament before dispatching this one
			return jobs.Permanent(err)
		}
		if err != nil {
			return err
		}
		if !created {
			continue
		}
		stored++

		err = o.dispatcher.Dispatch(ctx, KIND_GET_DECK, deckPayload{
			DeckId:     deck.ExternalDeckID,
			FormatCode: deck.FormatCode,
		})
		if err != nil {
			return err
		}
	}

	o.tel.ReportDebug(fmt.Sprintf("stored %d new decks", stored), payload.Url)
	return nil
}

func (o *Orchestrator) getDeck(ctx context.Context, payload deckPayload) error {
	content, err := o.tournaments.DeckExport(ctx, payload.DeckId)
	if err != nil {
		return err
	}
	deck := mtgtop8.ParseDeck(o.tel, content, payload.FormatCode)

	_, err = o.store.GetOrCreateDeck(ctx, payload.DeckId, deck)
	if err != nil {
		return err
	}

	sections := []struct {
		cards     map[string]int
		sideboard bool
	}{
		{deck.Main, false},
		{deck.Sideboard, true},
	}
	for _, section := range sections {
		names := make([]string, 0, len(section.cards))
		for name := range section.cards {
			names = append(names, name)
		}
		slices.Sort(names)

		for _, name := range names {
			resolved, err := o.resolver.Resolve(ctx, name)
			if errors.Is(err, cardname.ErrNotFound) {
				o.tel.ReportWarning(report_get_deck, err, payload.DeckId)
				continue
			}
			if err != nil {
				return err
			}

			_, err = o.store.SaveDeckCard(ctx, payload.DeckId, db.DeckCard{
				CardName:  resolved.Name,
				Sideboard: section.sideboard,
				Quantity:  section.cards[name],
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}
