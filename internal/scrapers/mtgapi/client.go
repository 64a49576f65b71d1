package mtgapi

import (
	"context"
	"encoding/json"
	"fmt"
	"mtgstats-backend/internal/components/assert"
	"mtgstats-backend/internal/components/telemetry"
	"mtgstats-backend/internal/mtg"
	"mtgstats-backend/pkg/restyutil"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	report_client_cards = "client.cards"
	report_client_sets  = "client.sets"
)

const DefaultBaseUrl = "https://api.magicthegathering.io/v1"

type ClientOptions struct {
	BaseUrl  string `json:"base_url"`
	PageSize int    `json:"page_size"`
}

// Client reads cards and sets from the magicthegathering.io json api.
type Client struct {
	http     *resty.Client
	pageSize int
	location *time.Location
	tel      telemetry.API
}

func NewClient(opts ClientOptions, loc *time.Location, tel telemetry.API) *Client {
	assert.NotNil(tel)
	assert.NotNil(loc)
	tel = telemetry.NewScopedAPI("mtgapi", tel)

	baseUrl := opts.BaseUrl
	if baseUrl == "" {
		baseUrl = DefaultBaseUrl
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}

	return &Client{
		http: restyutil.NewClient(restyutil.ClientOptions{
			BaseUrl:    baseUrl,
			TracerName: "mtgstats.scrapers.mtgapi",
		}, tel),
		pageSize: pageSize,
		location: loc,
		tel:      tel,
	}
}

func (c *Client) PageSize() int {
	return c.pageSize
}

type cardsResponse struct {
	Cards []json.RawMessage `json:"cards"`
}

type setsResponse struct {
	Sets []json.RawMessage `json:"sets"`
}

func (c *Client) getCards(ctx context.Context, query map[string]string) ([]mtg.Card, error) {
	var body cardsResponse
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(query).
		SetResult(&body).
		Get("/cards")
	if err != nil {
		return nil, err
	}
	err = restyutil.CheckResponse(res)
	if err != nil {
		return nil, err
	}

	cards := make([]mtg.Card, 0, len(body.Cards))
	for _, raw := range body.Cards {
		card, err := ParseCard(raw)
		if err != nil {
			c.tel.ReportWarning(report_client_cards, err)
			continue
		}
		cards = append(cards, card)
	}
	return cards, nil
}

// Cards returns one page of the whole card listing, an empty page means the
// listing is exhausted.
func (c *Client) Cards(ctx context.Context, page int) ([]mtg.Card, error) {
	cards, err := c.getCards(ctx, map[string]string{
		"page":     strconv.Itoa(page),
		"pageSize": strconv.Itoa(c.pageSize),
	})
	if err != nil {
		return nil, fmt.Errorf("mtgapi: cards page %d: %w", page, err)
	}
	return cards, nil
}

// CardsBySet returns every card of a set.
func (c *Client) CardsBySet(ctx context.Context, setCode string) ([]mtg.Card, error) {
	cards, err := c.getCards(ctx, map[string]string{
		"set": setCode,
	})
	if err != nil {
		return nil, fmt.Errorf("mtgapi: cards of set %s: %w", setCode, err)
	}
	return cards, nil
}

func (c *Client) Sets(ctx context.Context) ([]mtg.Set, error) {
	var body setsResponse
	res, err := c.http.R().
		SetContext(ctx).
		SetResult(&body).
		Get("/sets")
	if err != nil {
		return nil, fmt.Errorf("mtgapi: sets: %w", err)
	}
	err = restyutil.CheckResponse(res)
	if err != nil {
		return nil, fmt.Errorf("mtgapi: sets: %w", err)
	}

	sets := make([]mtg.Set, 0, len(body.Sets))
	for _, raw := range body.Sets {
		set, err := ParseSet(raw, c.location)
		if err != nil {
			c.tel.ReportWarning(report_client_sets, err)
			continue
		}
		sets = append(sets, set)
	}
	return sets, nil
}
