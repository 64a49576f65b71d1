package mtgtop8

import (
	"bytes"
	"context"
	"fmt"
	"mtgstats-backend/internal/components/assert"
	"mtgstats-backend/internal/components/telemetry"
	"mtgstats-backend/pkg/htmlutil"
	"mtgstats-backend/pkg/restyutil"
	"net/url"

	"github.com/go-resty/resty/v2"
)

const (
	report_client_format_page     = "client.format-page"
	report_client_tournament_page = "client.tournament-page"
	report_client_deck_export     = "client.deck-export"
)

type ClientOptions struct {
	// BaseUrl defaults to BaseUrl.
	BaseUrl           string  `json:"base_url"`
	RequestsPerSecond float64 `json:"requests_per_second"`
}

// Client fetches the three kinds of mtgtop8 pages the harvest needs.
type Client struct {
	baseUrl *url.URL
	http    *resty.Client
	tel     telemetry.API
}

func NewClient(opts ClientOptions, tel telemetry.API) (*Client, error) {
	assert.NotNil(tel)
	tel = telemetry.NewScopedAPI("mtgtop8", tel)

	baseUrl := BaseUrl
	if opts.BaseUrl != "" {
		parsed, err := url.Parse(opts.BaseUrl)
		if err != nil {
			return nil, fmt.Errorf("mtgtop8: parse base url: %w", err)
		}
		baseUrl = parsed
	}

	http := restyutil.NewClient(restyutil.ClientOptions{
		BaseUrl:           baseUrl.String(),
		TracerName:        "mtgstats.scrapers.mtgtop8",
		RequestsPerSecond: opts.RequestsPerSecond,
		CloudflareBypass:  true,
	}, tel)

	return &Client{
		baseUrl: baseUrl,
		http:    http,
		tel:     tel,
	}, nil
}

func (c *Client) get(ctx context.Context, reportId, link string) ([]byte, error) {
	res, err := c.http.R().
		SetContext(ctx).
		Get(link)
	if err != nil {
		return nil, err
	}
	err = restyutil.CheckResponse(res)
	if err != nil {
		c.tel.ReportWarning(reportId, err)
		return nil, err
	}
	return res.Body(), nil
}

func (c *Client) document(ctx context.Context, reportId, link string) (htmlutil.Document, error) {
	body, err := c.get(ctx, reportId, link)
	if err != nil {
		return htmlutil.Document{}, err
	}
	doc, err := htmlutil.NewDocument(bytes.NewReader(body))
	if err != nil {
		c.tel.ReportBroken(reportId, fmt.Errorf("parse html: %w", err), link)
		return htmlutil.Document{}, err
	}
	return doc, nil
}

// FormatPage fetches the listing page of a format, it holds the "Last N events" table.
func (c *Client) FormatPage(ctx context.Context, formatCode string) (htmlutil.Document, error) {
	link := "format?f=" + url.QueryEscape(formatCode)
	doc, err := c.document(ctx, report_client_format_page, link)
	if err != nil {
		return htmlutil.Document{}, fmt.Errorf("mtgtop8: format page %s: %w", formatCode, err)
	}
	return doc, nil
}

// TournamentPage fetches a tournament's result page. Only the path and query of
// the link are kept, they are requested from the client's base url.
func (c *Client) TournamentPage(ctx context.Context, link string) (htmlutil.Document, error) {
	parsed, err := url.Parse(link)
	if err != nil {
		return htmlutil.Document{}, fmt.Errorf("mtgtop8: tournament page %q: %w", link, err)
	}
	target := c.baseUrl.ResolveReference(&url.URL{
		Path:     parsed.Path,
		RawQuery: parsed.RawQuery,
	})

	doc, err := c.document(ctx, report_client_tournament_page, target.String())
	if err != nil {
		return htmlutil.Document{}, fmt.Errorf("mtgtop8: tournament page %s: %w", link, err)
	}
	return doc, nil
}

// DeckExport fetches the plain text mtgo export of a deck.
func (c *Client) DeckExport(ctx context.Context, deckId string) (string, error) {
	body, err := c.get(ctx, report_client_deck_export, "mtgo?d="+url.QueryEscape(deckId))
	if err != nil {
		return "", fmt.Errorf("mtgtop8: deck export %s: %w", deckId, err)
	}
	return string(body), nil
}
