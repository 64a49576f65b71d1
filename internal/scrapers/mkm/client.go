package mkm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mtgstats-backend/internal/components/assert"
	"mtgstats-backend/internal/components/telemetry"
	"mtgstats-backend/pkg/htmlutil"
	"mtgstats-backend/pkg/restyutil"
	"net/http"

	"github.com/go-resty/resty/v2"
)

const (
	report_client_product_page = "client.product-page"
)

var ErrArticleNotFound = errors.New("the requested article does not exist")

const articleNotFoundMarker = "The requested article does not exist."

type ClientOptions struct {
	RequestsPerSecond float64 `json:"requests_per_second"`
}

type Client struct {
	http *resty.Client
	tel  telemetry.API
}

func NewClient(opts ClientOptions, tel telemetry.API) *Client {
	assert.NotNil(tel)
	tel = telemetry.NewScopedAPI("mkm", tel)

	return &Client{
		http: restyutil.NewClient(restyutil.ClientOptions{
			TracerName:        "mtgstats.scrapers.mkm",
			RequestsPerSecond: opts.RequestsPerSecond,
			CloudflareBypass:  true,
		}, tel),
		tel: tel,
	}
}

// ProductPage fetches a single product page, product urls come from the card
// name resolver. A page saying the article does not exist yields ErrArticleNotFound.
func (c *Client) ProductPage(ctx context.Context, productUrl string) (htmlutil.Document, error) {
	res, err := c.http.R().
		SetContext(ctx).
		Get(productUrl)
	if err != nil {
		return htmlutil.Document{}, fmt.Errorf("mkm: product page: %w", err)
	}
	if res.StatusCode() == http.StatusNotFound || bytes.Contains(res.Body(), []byte(articleNotFoundMarker)) {
		return htmlutil.Document{}, fmt.Errorf("mkm: %s: %w", productUrl, ErrArticleNotFound)
	}
	err = restyutil.CheckResponse(res)
	if err != nil {
		c.tel.ReportWarning(report_client_product_page, err)
		return htmlutil.Document{}, fmt.Errorf("mkm: product page: %w", err)
	}

	doc, err := htmlutil.NewDocument(bytes.NewReader(res.Body()))
	if err != nil {
		c.tel.ReportBroken(report_client_product_page, fmt.Errorf("parse html: %w", err), productUrl)
		return htmlutil.Document{}, err
	}
	return doc, nil
}
