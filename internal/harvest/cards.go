package harvest

import (
	"context"
	"errors"
	"mtgstats-backend/internal/db"
	"mtgstats-backend/internal/jobs"
	"mtgstats-backend/internal/mtg"
	"mtgstats-backend/internal/scrapers/mtgapi"
	"time"
)

const (
	report_store_card = "store-card"
)

type cardsPayload struct {
	Page int    `json:"page"`
	Set  string `json:"set"`
}

// harvestSets stores every set and harvests the cards of the sets it creates.
func (o *Orchestrator) harvestSets(ctx context.Context, _ struct{}) error {
	sets, err := o.cards.Sets(ctx)
	if err != nil {
		return err
	}

	for _, set := range sets {
		o.resolver.PostProcessSet(&set)
		created, err := o.store.GetOrCreateSet(ctx, set)
		if err != nil {
			return err
		}
		if !created {
			continue
		}
		err = o.dispatcher.Dispatch(ctx, KIND_HARVEST_CARDS, cardsPayload{Set: set.Code})
		if err != nil {
			return err
		}
	}
	return nil
}

// harvestCards reads one page of the card listing (or every card of a set)
// and dispatches each card. A non empty page dispatches the next one.
func (o *Orchestrator) harvestCards(ctx context.Context, payload cardsPayload) error {
	var cards []mtg.Card
	var err error
	if payload.Set != "" {
		cards, err = o.cards.CardsBySet(ctx, payload.Set)
	} else {
		if payload.Page < 1 {
			payload.Page = 1
		}
		cards, err = o.cards.Cards(ctx, payload.Page)
	}
	if err != nil {
		return err
	}

	if len(cards) > 0 && payload.Set == "" {
		err = o.dispatcher.Dispatch(ctx, KIND_HARVEST_CARDS, cardsPayload{Page: payload.Page + 1})
		if err != nil {
			return err
		}
	}

	for _, card := range cards {
		err = o.dispatcher.Dispatch(ctx, KIND_STORE_CARD, card)
		if err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) storeCard(ctx context.Context, card mtg.Card) error {
	rarity, err := mtgapi.ParseRarity(card.Rarity)
	if err != nil {
		return jobs.Permanent(err)
	}
	o.resolver.PostProcessCard(&card)

	var releaseDate *time.Time
	if card.ReleaseDate != "" {
		date, ok := mtgapi.ParseReleaseDate(card.ReleaseDate, o.time.Location())
		if ok {
			releaseDate = &date
		} else {
			o.tel.ReportWarning(report_store_card, "unexpected release date", card.ID, card.ReleaseDate)
		}
	}

	_, err = o.store.GetOrCreateCard(ctx, card, rarity, releaseDate)
	if errors.Is(err, db.ErrUnknownSet) {
		return jobs.Permanent(err)
	}
	return err
}
