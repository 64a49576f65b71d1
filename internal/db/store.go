package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"mtgstats-backend/internal/components/assert"
	"mtgstats-backend/internal/components/chrono"
	"mtgstats-backend/internal/mtg"
	"time"
)

var (
	ErrUnknownTournament = errors.New("unknown tournament")
	ErrUnknownSet        = errors.New("unknown set")
	ErrUnknownCard       = errors.New("unknown card")
)

// RelevanceWindowDays is how far back tournaments count towards card relevance.
const RelevanceWindowDays = 14

// Store persists harvested records, every write is a get-or-create on the
// natural key of the record so duplicated jobs are harmless.
type Store struct {
	db       *sql.DB
	qry      *Queries
	makeTx   MakeTx
	location *time.Location
}

func NewStore(database *sql.DB, location *time.Location) Store {
	assert.NotNil(database)
	assert.NotNil(location)
	return Store{
		db:       database,
		qry:      New(database),
		makeTx:   NewMakeTx(database),
		location: location,
	}
}

func (s Store) day(t time.Time) int64 {
	return chrono.StartOfDay(t.In(s.location)).Unix()
}

func (s Store) fromDay(unix int64) time.Time {
	return time.Unix(unix, 0).In(s.location)
}

// withTx runs fn in a transaction, it is committed when fn returns no error.
func (s Store) withTx(ctx context.Context, fn func(tx *Queries) error) error {
	tx, discard, commit, err := s.makeTx(ctx)
	if err != nil {
		return err
	}
	defer discard()

	err = fn(tx)
	if err != nil {
		return err
	}
	return commit()
}

// GetOrCreateTournament stores a tournament (and its format) unless a
// tournament with the same external id exists, created reports which.
func (s Store) GetOrCreateTournament(ctx context.Context, tournament mtg.TournamentDescriptor) (created bool, err error) {
	format, err := mtg.FormatFromCode(tournament.FormatCode)
	if err != nil {
		return false, err
	}

	err = s.withTx(ctx, func(tx *Queries) error {
		_, err := tx.CreateFormat(ctx, tournament.FormatCode, string(format))
		if err != nil {
			return err
		}
		created, err = tx.CreateTournament(ctx, CreateTournamentParams{
			ID:         tournament.ExternalID,
			Name:       tournament.Name,
			Url:        tournament.URL,
			EventDate:  s.day(tournament.EventDate),
			FormatCode: tournament.FormatCode,
		})
		return err
	})
	if err != nil {
		return false, fmt.Errorf("store tournament %s: %w", tournament.ExternalID, err)
	}
	return created, nil
}

func (s Store) HasTournament(ctx context.Context, id string) (bool, error) {
	return s.qry.HasTournament(ctx, id)
}

// SaveDeckResult upserts the deck and creates its position in the tournament
// if absent, created is only true the first time a deck is seen in a tournament.
func (s Store) SaveDeckResult(ctx context.Context, result mtg.DeckResultDescriptor) (created bool, err error) {
	err = s.withTx(ctx, func(tx *Queries) error {
		ok, err := tx.HasTournament(ctx, result.TournamentID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownTournament, result.TournamentID)
		}

		err = tx.UpsertDeck(ctx, UpsertDeckParams{
			ID:         result.ExternalDeckID,
			Name:       result.DeckName,
			Owner:      result.Player,
			FormatCode: result.FormatCode,
		})
		if err != nil {
			return err
		}
		created, err = tx.CreateDeckPosition(ctx, result.ExternalDeckID, result.TournamentID, result.Position)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("store deck %s: %w", result.ExternalDeckID, err)
	}
	return created, nil
}

// GetOrCreateDeck stores a deck read from its export alone, an existing deck
// keeps the name and owner its tournament page gave it.
func (s Store) GetOrCreateDeck(ctx context.Context, id string, deck mtg.DeckList) (bool, error) {
	created, err := s.qry.CreateDeck(ctx, UpsertDeckParams{
		ID:         id,
		Name:       deck.Name,
		Owner:      deck.Owner,
		FormatCode: deck.Format,
	})
	if err != nil {
		return false, fmt.Errorf("store deck %s: %w", id, err)
	}
	return created, nil
}

// SaveDeckCard creates the (deck, card name, sideboard) entry if absent, the
// quantity of an existing entry is never changed.
func (s Store) SaveDeckCard(ctx context.Context, deckId string, card DeckCard) (bool, error) {
	return s.qry.CreateDeckCard(ctx, deckId, card)
}

func (s Store) DeckCards(ctx context.Context, deckId string) ([]DeckCard, error) {
	return s.qry.ListDeckCards(ctx, deckId)
}

func (s Store) HasCardName(ctx context.Context, name string) (bool, error) {
	return s.qry.HasCardName(ctx, name)
}

func (s Store) CardNames(ctx context.Context) ([]string, error) {
	return s.qry.ListCardNames(ctx)
}

func (s Store) GetOrCreateSet(ctx context.Context, set mtg.Set) (bool, error) {
	var releaseDate sql.NullInt64
	if !set.ReleaseDate.IsZero() {
		releaseDate = sql.NullInt64{Int64: s.day(set.ReleaseDate), Valid: true}
	}
	created, err := s.qry.CreateSet(ctx, Set{
		Code:        set.Code,
		Name:        set.Name,
		Type:        set.Type,
		Border:      set.Border,
		Block:       set.Block,
		OnlineOnly:  set.OnlineOnly,
		HasBooster:  set.HasBooster,
		ReleaseDate: releaseDate,
		MarketName:  set.MarketName,
		IsRelevant:  set.IsRelevant,
	})
	if err != nil {
		return false, fmt.Errorf("store set %s: %w", set.Code, err)
	}
	return created, nil
}

func (s Store) Set(ctx context.Context, code string) (mtg.Set, error) {
	row, err := s.qry.GetSet(ctx, code)
	if errors.Is(err, sql.ErrNoRows) {
		return mtg.Set{}, fmt.Errorf("%w: %s", ErrUnknownSet, code)
	}
	if err != nil {
		return mtg.Set{}, err
	}

	set := mtg.Set{
		Code:       row.Code,
		Name:       row.Name,
		Type:       row.Type,
		Border:     row.Border,
		Block:      row.Block,
		OnlineOnly: row.OnlineOnly,
		HasBooster: row.HasBooster,
		MarketName: row.MarketName,
		IsRelevant: row.IsRelevant,
	}
	if row.ReleaseDate.Valid {
		set.ReleaseDate = s.fromDay(row.ReleaseDate.Int64)
	}
	return set, nil
}

// GetOrCreateCard stores a printing with its name, the names of its faces,
// its printings and legalities. Nothing is written for a known card id.
func (s Store) GetOrCreateCard(ctx context.Context, card mtg.Card, rarity mtg.Rarity, releaseDate *time.Time) (created bool, err error) {
	row := Card{
		ID:         card.ID,
		Name:       card.Name,
		SetCode:    card.Set,
		Rarity:     rarity.Code,
		Foil:       rarity.Foil,
		Layout:     string(card.Layout),
		Number:     card.Number,
		ManaCost:   card.ManaCost,
		Cmc:        sql.NullFloat64{Float64: card.Cmc, Valid: true},
		Type:       card.Type,
		Text:       card.Text,
		Artist:     card.Artist,
		MarketName: card.MarketName,
	}
	if row.Layout == "" {
		row.Layout = string(mtg.LAYOUT_NORMAL)
	}
	if card.MultiverseID > 0 {
		row.MultiverseID = sql.NullInt64{Int64: card.MultiverseID, Valid: true}
	}
	if releaseDate != nil {
		row.ReleaseDate = sql.NullInt64{Int64: s.day(*releaseDate), Valid: true}
	}

	err = s.withTx(ctx, func(tx *Queries) error {
		_, err := tx.GetSet(ctx, card.Set)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrUnknownSet, card.Set)
		}
		if err != nil {
			return err
		}

		_, err = tx.CreateCardName(ctx, card.Name)
		if err != nil {
			return err
		}
		created, err = tx.CreateCard(ctx, row)
		if err != nil || !created {
			return err
		}

		for _, name := range card.Names {
			_, err = tx.CreateCardName(ctx, name)
			if err != nil {
				return err
			}
			err = tx.AddCardFace(ctx, card.ID, name)
			if err != nil {
				return err
			}
		}
		for _, set := range card.Printings {
			err = tx.AddCardPrinting(ctx, card.ID, set)
			if err != nil {
				return err
			}
		}
		for _, legality := range card.Legalities {
			err = tx.AddLegality(ctx, card.ID, legality.Format, legality.Legality)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("store card %s: %w", card.ID, err)
	}
	return created, nil
}

func (s Store) Card(ctx context.Context, id string) (mtg.Card, error) {
	row, err := s.qry.GetCard(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return mtg.Card{}, fmt.Errorf("%w: %s", ErrUnknownCard, id)
	}
	if err != nil {
		return mtg.Card{}, err
	}
	names, err := s.qry.ListCardFaces(ctx, id)
	if err != nil {
		return mtg.Card{}, err
	}

	return mtg.Card{
		ID:           row.ID,
		Name:         row.Name,
		Names:        names,
		ManaCost:     row.ManaCost,
		Cmc:          row.Cmc.Float64,
		Type:         row.Type,
		Rarity:       row.Rarity,
		Set:          row.SetCode,
		Text:         row.Text,
		Artist:       row.Artist,
		Number:       row.Number,
		Layout:       mtg.Layout(row.Layout),
		MultiverseID: row.MultiverseID.Int64,
		MarketName:   row.MarketName,
		IsRelevant:   row.IsRelevant,
	}, nil
}

// PlayedCards sums the quantities of every card name played in the
// tournaments held between from and to (both days included).
func (s Store) PlayedCards(ctx context.Context, from, to time.Time) (map[string]int, error) {
	rows, err := s.qry.ListPlayedCards(ctx, s.day(from), s.day(to))
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(rows))
	for _, row := range rows {
		out[row.Name] = row.Count
	}
	return out, nil
}

// UpdateRelevance resets the relevance of every card, then flags the rare and
// mythic printings in a relevant set of every card played in the last
// RelevanceWindowDays, in a single transaction. It returns the number of
// relevant cards.
func (s Store) UpdateRelevance(ctx context.Context, now time.Time) (int, error) {
	today := s.day(now)
	from := s.day(s.fromDay(today).AddDate(0, 0, -RelevanceWindowDays))

	var relevant int
	err := s.withTx(ctx, func(tx *Queries) error {
		_, err := tx.ResetRelevance(ctx)
		if err != nil {
			return err
		}
		played, err := tx.ListPlayedCards(ctx, from, today)
		if err != nil {
			return err
		}
		for _, card := range played {
			n, err := tx.PromoteRelevance(ctx, card.Name)
			if err != nil {
				return err
			}
			relevant += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("update relevance: %w", err)
	}
	return relevant, nil
}

func (s Store) RelevantCardIds(ctx context.Context) ([]string, error) {
	return s.qry.ListRelevantCardIds(ctx)
}

func (s Store) HasPrice(ctx context.Context, cardId string, date time.Time) (bool, error) {
	return s.qry.HasPrice(ctx, cardId, s.day(date))
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

// GetOrCreatePrice stores the snapshot of a card for its day if there is none.
func (s Store) GetOrCreatePrice(ctx context.Context, snapshot mtg.CardPriceSnapshot) (bool, error) {
	row := Price{
		CardID:         snapshot.CardID,
		Date:           s.day(snapshot.Date),
		AvailableItems: snapshot.AvailableItems,
		MinPrice:       nullFloat(snapshot.MinPrice),
		MeanPrice:      nullFloat(snapshot.MeanPrice),
		MinFoil:        nullFloat(snapshot.MinFoil),
	}
	if snapshot.AvailableFoils != nil {
		row.AvailableFoils = sql.NullInt64{Int64: int64(*snapshot.AvailableFoils), Valid: true}
	}

	created, err := s.qry.CreatePrice(ctx, row)
	if err != nil {
		return false, fmt.Errorf("store price of %s: %w", snapshot.CardID, err)
	}
	return created, nil
}

func (s Store) Price(ctx context.Context, cardId string, date time.Time) (mtg.CardPriceSnapshot, error) {
	row, err := s.qry.GetPrice(ctx, cardId, s.day(date))
	if err != nil {
		return mtg.CardPriceSnapshot{}, err
	}

	snapshot := mtg.CardPriceSnapshot{
		CardID:         row.CardID,
		Date:           s.fromDay(row.Date),
		AvailableItems: row.AvailableItems,
	}
	if row.MinPrice.Valid {
		snapshot.MinPrice = &row.MinPrice.Float64
	}
	if row.MeanPrice.Valid {
		snapshot.MeanPrice = &row.MeanPrice.Float64
	}
	if row.AvailableFoils.Valid {
		foils := int(row.AvailableFoils.Int64)
		snapshot.AvailableFoils = &foils
	}
	if row.MinFoil.Valid {
		snapshot.MinFoil = &row.MinFoil.Float64
	}
	return snapshot, nil
}
