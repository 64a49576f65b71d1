package harvest

import (
	"context"
	"errors"
	"mtgstats-backend/internal/db"
	"mtgstats-backend/internal/jobs"
	"mtgstats-backend/internal/mtg"
	"mtgstats-backend/internal/scrapers/mkm"
)

const (
	report_get_price = "get-price"
)

type pricePayload struct {
	CardId string `json:"card_id"`
}

// harvestPrices dispatches the price of every relevant card that has no
// snapshot for today.
func (o *Orchestrator) harvestPrices(ctx context.Context, _ struct{}) error {
	ids, err := o.store.RelevantCardIds(ctx)
	if err != nil {
		return err
	}

	today := o.time.Now()
	for _, id := range ids {
		ok, err := o.store.HasPrice(ctx, id, today)
		if err != nil {
			return err
		}
		if ok {
			continue
		}
		err = o.dispatcher.Dispatch(ctx, KIND_GET_PRICE, pricePayload{CardId: id})
		if err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) getPrice(ctx context.Context, payload pricePayload) error {
	card, err := o.store.Card(ctx, payload.CardId)
	if errors.Is(err, db.ErrUnknownCard) {
		return jobs.Permanent(err)
	}
	if err != nil {
		return err
	}
	set, err := o.store.Set(ctx, card.Set)
	if errors.Is(err, db.ErrUnknownSet) {
		return jobs.Permanent(err)
	}
	if err != nil {
		return err
	}

	productUrl := o.resolver.PriceUrl(card, set)
	doc, err := o.prices.ProductPage(ctx, productUrl)
	if errors.Is(err, mkm.ErrArticleNotFound) {
		// the market lists double-faced cards under names the api does not know
		if card.Layout == mtg.LAYOUT_DOUBLE_FACED {
			o.tel.ReportWarning(report_get_price, err, card.ID)
		} else {
			o.tel.ReportBroken(report_get_price, err, card.ID)
		}
		return nil
	}
	if err != nil {
		return err
	}

	snapshot, err := mkm.ParsePricePage(doc)
	if err != nil {
		return jobs.Permanent(err)
	}
	snapshot.CardID = card.ID
	snapshot.Date = o.time.Now()

	_, err = o.store.GetOrCreatePrice(ctx, snapshot)
	return err
}
