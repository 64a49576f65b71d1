package db

import (
	"context"
	"database/sql"
	"errors"
)

func created(res sql.Result, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func exists(row *sql.Row) (bool, error) {
	var one int
	err := row.Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

const createFormat = `insert into formats (code, name) values (?, ?) on conflict do nothing`

func (q *Queries) CreateFormat(ctx context.Context, code, name string) (bool, error) {
	return created(q.db.ExecContext(ctx, createFormat, code, name))
}

type CreateTournamentParams struct {
	ID         string
	Name       string
	Url        string
	EventDate  int64
	FormatCode string
}

const createTournament = `insert into tournaments (id, name, url, event_date, format_code)
values (?, ?, ?, ?, ?) on conflict do nothing`

func (q *Queries) CreateTournament(ctx context.Context, arg CreateTournamentParams) (bool, error) {
	return created(q.db.ExecContext(ctx, createTournament,
		arg.ID, arg.Name, arg.Url, arg.EventDate, arg.FormatCode,
	))
}

const hasTournament = `select 1 from tournaments where id = ?`

func (q *Queries) HasTournament(ctx context.Context, id string) (bool, error) {
	return exists(q.db.QueryRowContext(ctx, hasTournament, id))
}

const countTournaments = `select count(*) from tournaments`

func (q *Queries) CountTournaments(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countTournaments).Scan(&n)
	return n, err
}

type UpsertDeckParams struct {
	ID         string
	Name       string
	Owner      string
	FormatCode string
}

const upsertDeck = `insert into decks (id, name, owner, format_code) values (?, ?, ?, ?)
on conflict (id) do update set name = excluded.name, owner = excluded.owner, format_code = excluded.format_code`

func (q *Queries) UpsertDeck(ctx context.Context, arg UpsertDeckParams) error {
	_, err := q.db.ExecContext(ctx, upsertDeck, arg.ID, arg.Name, arg.Owner, arg.FormatCode)
	return err
}

const createDeck = `insert into decks (id, name, owner, format_code) values (?, ?, ?, ?)
on conflict do nothing`

func (q *Queries) CreateDeck(ctx context.Context, arg UpsertDeckParams) (bool, error) {
	return created(q.db.ExecContext(ctx, createDeck, arg.ID, arg.Name, arg.Owner, arg.FormatCode))
}

const createDeckPosition = `insert into deck_positions (deck_id, tournament_id, position)
values (?, ?, ?) on conflict do nothing`

func (q *Queries) CreateDeckPosition(ctx context.Context, deckId, tournamentId string, position int) (bool, error) {
	return created(q.db.ExecContext(ctx, createDeckPosition, deckId, tournamentId, position))
}

type DeckCard struct {
	CardName  string
	Sideboard bool
	Quantity  int
}

const createDeckCard = `insert into deck_cards (deck_id, card_name, sideboard, quantity)
values (?, ?, ?, ?) on conflict do nothing`

func (q *Queries) CreateDeckCard(ctx context.Context, deckId string, card DeckCard) (bool, error) {
	return created(q.db.ExecContext(ctx, createDeckCard,
		deckId, card.CardName, boolInt(card.Sideboard), card.Quantity,
	))
}

const listDeckCards = `select card_name, sideboard, quantity from deck_cards
where deck_id = ? order by sideboard, card_name`

func (q *Queries) ListDeckCards(ctx context.Context, deckId string) ([]DeckCard, error) {
	rows, err := q.db.QueryContext(ctx, listDeckCards, deckId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DeckCard
	for rows.Next() {
		var card DeckCard
		err := rows.Scan(&card.CardName, &card.Sideboard, &card.Quantity)
		if err != nil {
			return nil, err
		}
		out = append(out, card)
	}
	return out, rows.Err()
}

const createCardName = `insert into card_names (name) values (?) on conflict do nothing`

func (q *Queries) CreateCardName(ctx context.Context, name string) (bool, error) {
	return created(q.db.ExecContext(ctx, createCardName, name))
}

const hasCardName = `select 1 from card_names where name = ?`

func (q *Queries) HasCardName(ctx context.Context, name string) (bool, error) {
	return exists(q.db.QueryRowContext(ctx, hasCardName, name))
}

const listCardNames = `select name from card_names order by name`

func (q *Queries) ListCardNames(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listCardNames)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		err := rows.Scan(&name)
		if err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

type Set struct {
	Code        string
	Name        string
	Type        string
	Border      string
	Block       string
	OnlineOnly  bool
	HasBooster  bool
	ReleaseDate sql.NullInt64
	MarketName  string
	IsRelevant  bool
}

const createSet = `insert into sets
(code, name, type, border, block, online_only, has_booster, release_date, market_name, is_relevant)
values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?) on conflict do nothing`

func (q *Queries) CreateSet(ctx context.Context, arg Set) (bool, error) {
	return created(q.db.ExecContext(ctx, createSet,
		arg.Code, arg.Name, arg.Type, arg.Border, arg.Block,
		boolInt(arg.OnlineOnly), boolInt(arg.HasBooster), arg.ReleaseDate,
		arg.MarketName, boolInt(arg.IsRelevant),
	))
}

const getSet = `select code, name, type, border, block, online_only, has_booster, release_date, market_name, is_relevant
from sets where code = ?`

func (q *Queries) GetSet(ctx context.Context, code string) (Set, error) {
	var s Set
	err := q.db.QueryRowContext(ctx, getSet, code).Scan(
		&s.Code, &s.Name, &s.Type, &s.Border, &s.Block,
		&s.OnlineOnly, &s.HasBooster, &s.ReleaseDate,
		&s.MarketName, &s.IsRelevant,
	)
	return s, err
}

type Card struct {
	ID           string
	Name         string
	SetCode      string
	Rarity       string
	Foil         bool
	Layout       string
	Number       string
	ManaCost     string
	Cmc          sql.NullFloat64
	Type         string
	Text         string
	Artist       string
	MultiverseID sql.NullInt64
	ReleaseDate  sql.NullInt64
	MarketName   string
	IsRelevant   bool
}

const createCard = `insert into cards
(id, name, set_code, rarity, foil, layout, number, mana_cost, cmc, type, text, artist, multiverse_id, release_date, market_name)
values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) on conflict do nothing`

func (q *Queries) CreateCard(ctx context.Context, arg Card) (bool, error) {
	return created(q.db.ExecContext(ctx, createCard,
		arg.ID, arg.Name, arg.SetCode, arg.Rarity, boolInt(arg.Foil),
		arg.Layout, arg.Number, arg.ManaCost, arg.Cmc, arg.Type, arg.Text,
		arg.Artist, arg.MultiverseID, arg.ReleaseDate, arg.MarketName,
	))
}

const getCard = `select id, name, set_code, rarity, foil, layout, number, mana_cost, cmc, type, text,
artist, multiverse_id, release_date, market_name, is_relevant
from cards where id = ?`

func (q *Queries) GetCard(ctx context.Context, id string) (Card, error) {
	var c Card
	err := q.db.QueryRowContext(ctx, getCard, id).Scan(
		&c.ID, &c.Name, &c.SetCode, &c.Rarity, &c.Foil,
		&c.Layout, &c.Number, &c.ManaCost, &c.Cmc, &c.Type, &c.Text,
		&c.Artist, &c.MultiverseID, &c.ReleaseDate, &c.MarketName, &c.IsRelevant,
	)
	return c, err
}

const addCardFace = `insert into card_faces (card_id, name) values (?, ?) on conflict do nothing`

func (q *Queries) AddCardFace(ctx context.Context, cardId, name string) error {
	_, err := q.db.ExecContext(ctx, addCardFace, cardId, name)
	return err
}

const listCardFaces = `select name from card_faces where card_id = ? order by rowid`

func (q *Queries) ListCardFaces(ctx context.Context, cardId string) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listCardFaces, cardId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		err := rows.Scan(&name)
		if err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

const addCardPrinting = `insert into card_printings (card_id, set_code) values (?, ?) on conflict do nothing`

func (q *Queries) AddCardPrinting(ctx context.Context, cardId, setCode string) error {
	_, err := q.db.ExecContext(ctx, addCardPrinting, cardId, setCode)
	return err
}

const addLegality = `insert into legalities (card_id, format, legality) values (?, ?, ?)
on conflict (card_id, format) do update set legality = excluded.legality`

func (q *Queries) AddLegality(ctx context.Context, cardId, format, legality string) error {
	_, err := q.db.ExecContext(ctx, addLegality, cardId, format, legality)
	return err
}

const resetRelevance = `update cards set is_relevant = 0`

func (q *Queries) ResetRelevance(ctx context.Context) (int64, error) {
	res, err := q.db.ExecContext(ctx, resetRelevance)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const promoteRelevance = `update cards set is_relevant = 1
where name = ?
and rarity in ('R', 'M')
and set_code in (select code from sets where is_relevant = 1)`

func (q *Queries) PromoteRelevance(ctx context.Context, cardName string) (int64, error) {
	res, err := q.db.ExecContext(ctx, promoteRelevance, cardName)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const listRelevantCardIds = `select id from cards where is_relevant = 1 order by id`

func (q *Queries) ListRelevantCardIds(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listRelevantCardIds)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		err := rows.Scan(&id)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

type PlayedCard struct {
	Name  string
	Count int
}

const listPlayedCards = `select dc.card_name, sum(dc.quantity)
from tournaments t
join deck_positions dp on dp.tournament_id = t.id
join deck_cards dc on dc.deck_id = dp.deck_id
where t.event_date >= ? and t.event_date <= ?
group by dc.card_name
order by dc.card_name`

func (q *Queries) ListPlayedCards(ctx context.Context, from, to int64) ([]PlayedCard, error) {
	rows, err := q.db.QueryContext(ctx, listPlayedCards, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PlayedCard
	for rows.Next() {
		var card PlayedCard
		err := rows.Scan(&card.Name, &card.Count)
		if err != nil {
			return nil, err
		}
		out = append(out, card)
	}
	return out, rows.Err()
}

type Price struct {
	CardID         string
	Date           int64
	AvailableItems int
	MinPrice       sql.NullFloat64
	MeanPrice      sql.NullFloat64
	AvailableFoils sql.NullInt64
	MinFoil        sql.NullFloat64
}

const createPrice = `insert into prices
(card_id, date, available_items, min_price, mean_price, available_foils, min_foil)
values (?, ?, ?, ?, ?, ?, ?) on conflict do nothing`

func (q *Queries) CreatePrice(ctx context.Context, arg Price) (bool, error) {
	return created(q.db.ExecContext(ctx, createPrice,
		arg.CardID, arg.Date, arg.AvailableItems,
		arg.MinPrice, arg.MeanPrice, arg.AvailableFoils, arg.MinFoil,
	))
}

const hasPrice = `select 1 from prices where card_id = ? and date = ?`

func (q *Queries) HasPrice(ctx context.Context, cardId string, date int64) (bool, error) {
	return exists(q.db.QueryRowContext(ctx, hasPrice, cardId, date))
}

const getPrice = `select card_id, date, available_items, min_price, mean_price, available_foils, min_foil
from prices where card_id = ? and date = ?`

func (q *Queries) GetPrice(ctx context.Context, cardId string, date int64) (Price, error) {
	var p Price
	err := q.db.QueryRowContext(ctx, getPrice, cardId, date).Scan(
		&p.CardID, &p.Date, &p.AvailableItems,
		&p.MinPrice, &p.MeanPrice, &p.AvailableFoils, &p.MinFoil,
	)
	return p, err
}
