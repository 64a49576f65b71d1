// Package harvest fans the scraping of tournaments, decks, cards, sets and
// prices out to background jobs.
//
// Every entry point enqueues a job and returns immediately. The jobs store
// what they read through get-or-create operations so a job running twice
// leaves the store as if it ran once.
package harvest

import (
	"context"
	"mtgstats-backend/internal/components/assert"
	"mtgstats-backend/internal/components/chrono"
	"mtgstats-backend/internal/components/telemetry"
	"mtgstats-backend/internal/db"
	"mtgstats-backend/internal/jobs"
	"mtgstats-backend/internal/mtg"
	"mtgstats-backend/pkg/htmlutil"
	"time"
)

const (
	KIND_HARVEST_FORMATS      jobs.Kind = "harvest_formats"
	KIND_GET_LAST_TOURNAMENTS jobs.Kind = "get_last_tournaments"
	KIND_GET_TOURNAMENT       jobs.Kind = "get_tournament"
	KIND_GET_DECK             jobs.Kind = "get_deck"
	KIND_UPDATE_RELEVANCE     jobs.Kind = "update_relevance"
	KIND_HARVEST_PRICES       jobs.Kind = "harvest_prices"
	KIND_GET_PRICE            jobs.Kind = "get_price"
	KIND_HARVEST_SETS         jobs.Kind = "harvest_sets"
	KIND_HARVEST_CARDS        jobs.Kind = "harvest_cards"
	KIND_STORE_CARD           jobs.Kind = "store_card"
)

// TournamentSource is the tournament site, see mtgtop8.Client.
type TournamentSource interface {
	FormatPage(ctx context.Context, formatCode string) (htmlutil.Document, error)
	TournamentPage(ctx context.Context, link string) (htmlutil.Document, error)
	DeckExport(ctx context.Context, deckId string) (string, error)
}

// PriceSource is the card market, see mkm.Client.
type PriceSource interface {
	ProductPage(ctx context.Context, productUrl string) (htmlutil.Document, error)
}

// CardSource is the card and set api, see mtgapi.Client.
type CardSource interface {
	Cards(ctx context.Context, page int) ([]mtg.Card, error)
	CardsBySet(ctx context.Context, setCode string) ([]mtg.Card, error)
	Sets(ctx context.Context) ([]mtg.Set, error)
}

// Resolver maps scraped names to stored ones, see cardname.Resolver.
type Resolver interface {
	Resolve(ctx context.Context, name string) (mtg.CardName, error)
	PostProcessSet(set *mtg.Set)
	PostProcessCard(card *mtg.Card)
	PriceUrl(card mtg.Card, set mtg.Set) string
}

// Store is the storage the jobs write to, see db.Store.
type Store interface {
	GetOrCreateTournament(ctx context.Context, tournament mtg.TournamentDescriptor) (bool, error)
	SaveDeckResult(ctx context.Context, result mtg.DeckResultDescriptor) (bool, error)
	GetOrCreateDeck(ctx context.Context, id string, deck mtg.DeckList) (bool, error)
	SaveDeckCard(ctx context.Context, deckId string, card db.DeckCard) (bool, error)

	GetOrCreateSet(ctx context.Context, set mtg.Set) (bool, error)
	Set(ctx context.Context, code string) (mtg.Set, error)
	GetOrCreateCard(ctx context.Context, card mtg.Card, rarity mtg.Rarity, releaseDate *time.Time) (bool, error)
	Card(ctx context.Context, id string) (mtg.Card, error)

	UpdateRelevance(ctx context.Context, now time.Time) (int, error)
	RelevantCardIds(ctx context.Context) ([]string, error)
	HasPrice(ctx context.Context, cardId string, date time.Time) (bool, error)
	GetOrCreatePrice(ctx context.Context, snapshot mtg.CardPriceSnapshot) (bool, error)
}

type Options struct {
	// RatePerMinute bounds the jobs hitting the html sites, it defaults to 10.
	RatePerMinute int `json:"rate_per_minute"`
	// SoftTimeLimitSeconds overrides the soft time limit of network bound jobs.
	SoftTimeLimitSeconds int `json:"soft_time_limit_seconds"`
}

type Dependencies struct {
	Dispatcher  jobs.Dispatcher
	Tournaments TournamentSource
	Prices      PriceSource
	Cards       CardSource
	Store       Store
	Resolver    Resolver
	Time        chrono.API
}

type Orchestrator struct {
	dispatcher  jobs.Dispatcher
	tournaments TournamentSource
	prices      PriceSource
	cards       CardSource
	store       Store
	resolver    Resolver
	time        chrono.API
	tel         telemetry.API
}

func NewOrchestrator(deps Dependencies, tel telemetry.API) *Orchestrator {
	assert.NotNil(deps.Dispatcher)
	assert.NotNil(deps.Tournaments)
	assert.NotNil(deps.Prices)
	assert.NotNil(deps.Cards)
	assert.NotNil(deps.Store)
	assert.NotNil(deps.Resolver)
	assert.NotNil(deps.Time)
	assert.NotNil(tel)

	return &Orchestrator{
		dispatcher:  deps.Dispatcher,
		tournaments: deps.Tournaments,
		prices:      deps.Prices,
		cards:       deps.Cards,
		store:       deps.Store,
		resolver:    deps.Resolver,
		time:        deps.Time,
		tel:         telemetry.NewScopedAPI("harvest", tel),
	}
}

// Register registers every harvest job with its policy.
func (o *Orchestrator) Register(registry *jobs.Registry, opts Options) {
	rate := opts.RatePerMinute
	if rate <= 0 {
		rate = 10
	}
	network := jobs.DefaultPolicy
	if opts.SoftTimeLimitSeconds > 0 {
		network = network.WithSoftTimeLimit(time.Duration(opts.SoftTimeLimitSeconds) * time.Second)
	}
	scraping := network.WithRate(rate)
	// fan out jobs only read the store and dispatch, they are not retried
	fanOut := jobs.Policy{SoftTimeLimit: network.SoftTimeLimit}
	local := jobs.Policy{}

	jobs.Register(registry, KIND_HARVEST_FORMATS, fanOut, o.harvestFormats)
	jobs.Register(registry, KIND_GET_LAST_TOURNAMENTS, scraping, o.getLastTournaments)
	jobs.Register(registry, KIND_GET_TOURNAMENT, scraping, o.getTournament)
	jobs.Register(registry, KIND_GET_DECK, scraping, o.getDeck)

	jobs.Register(registry, KIND_UPDATE_RELEVANCE, local, o.updateRelevance)
	jobs.Register(registry, KIND_HARVEST_PRICES, local, o.harvestPrices)
	jobs.Register(registry, KIND_GET_PRICE, scraping.WithSoftTimeLimit(2*network.SoftTimeLimit), o.getPrice)

	jobs.Register(registry, KIND_HARVEST_SETS, network, o.harvestSets)
	jobs.Register(registry, KIND_HARVEST_CARDS, network, o.harvestCards)
	jobs.Register(registry, KIND_STORE_CARD, network, o.storeCard)
}

// HarvestFormats harvests the last tournaments of every format, force
// harvests again the tournaments already stored.
func (o *Orchestrator) HarvestFormats(ctx context.Context, force bool) error {
	return o.dispatcher.Dispatch(ctx, KIND_HARVEST_FORMATS, formatsPayload{Force: force})
}

// HarvestTournament harvests the decks of a stored tournament.
func (o *Orchestrator) HarvestTournament(ctx context.Context, link string) error {
	return o.dispatcher.Dispatch(ctx, KIND_GET_TOURNAMENT, tournamentPayload{Url: link})
}

// HarvestDeck harvests the cards of a deck, formatCode is used when the
// export does not name its format.
func (o *Orchestrator) HarvestDeck(ctx context.Context, deckId, formatCode string) error {
	return o.dispatcher.Dispatch(ctx, KIND_GET_DECK, deckPayload{DeckId: deckId, FormatCode: formatCode})
}

func (o *Orchestrator) UpdateRelevance(ctx context.Context) error {
	return o.dispatcher.Dispatch(ctx, KIND_UPDATE_RELEVANCE, struct{}{})
}

func (o *Orchestrator) HarvestPrices(ctx context.Context) error {
	return o.dispatcher.Dispatch(ctx, KIND_HARVEST_PRICES, struct{}{})
}

func (o *Orchestrator) HarvestSets(ctx context.Context) error {
	return o.dispatcher.Dispatch(ctx, KIND_HARVEST_SETS, struct{}{})
}

// HarvestCards harvests the card listing starting at page, or every card of
// setCode when it is not empty.
func (o *Orchestrator) HarvestCards(ctx context.Context, page int, setCode string) error {
	if page < 1 {
		page = 1
	}
	return o.dispatcher.Dispatch(ctx, KIND_HARVEST_CARDS, cardsPayload{Page: page, Set: setCode})
}
