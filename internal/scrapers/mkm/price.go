package mkm

import (
	"errors"
	"fmt"
	"mtgstats-backend/internal/mtg"
	"mtgstats-backend/pkg/htmlutil"
	"strconv"
	"strings"
)

var ErrNoAvailabilityTable = errors.New("no availability table")

// ParsePricePage reads the availability table of a single product page.
//
// The number of available items is always present. The minimum and mean
// prices are only set when they read as numbers ("N/A" is left unset), the
// foil count and minimum foil price only when the card has a foil version.
func ParsePricePage(doc htmlutil.Locator) (mtg.CardPriceSnapshot, error) {
	table := doc.Locate("table.availTable").First()
	if table.Length() == 0 {
		return mtg.CardPriceSnapshot{}, ErrNoAvailabilityTable
	}

	offerCount := htmlutil.CleanText(table.Find(`span[itemprop="offerCount"]`).First().Text())
	availableItems, err := strconv.Atoi(offerCount)
	if err != nil {
		return mtg.CardPriceSnapshot{}, fmt.Errorf("parse offer count %q: %w", offerCount, err)
	}

	snapshot := mtg.CardPriceSnapshot{
		AvailableItems: availableItems,
	}

	lowPrice := table.Find(`span[itemprop="lowPrice"]`).First()
	if lowPrice.Length() > 0 {
		if price, ok := parseEuros(lowPrice.Text()); ok {
			snapshot.MinPrice = &price
		}
	}

	// the mean price is in the last row (outerBottom) when there is no foil version
	mean := table.Find("td.col_1.cell_2_1").First()
	if mean.Length() > 0 {
		if price, ok := parseEuros(mean.Text()); ok {
			snapshot.MeanPrice = &price
		}
	}

	foils := table.Find("td.col_1.cell_3_1").First()
	minFoil := table.Find("td.col_1.cell_4_1").First()
	if foils.Length() > 0 && minFoil.Length() > 0 {
		count, err := strconv.Atoi(htmlutil.CleanText(foils.Text()))
		if err != nil {
			return mtg.CardPriceSnapshot{}, fmt.Errorf("parse foil count %q: %w", foils.Text(), err)
		}
		snapshot.AvailableFoils = &count
		if price, ok := parseEuros(minFoil.Text()); ok {
			snapshot.MinFoil = &price
		}
	}

	return snapshot, nil
}

// parseEuros reads prices like "0,15 €".
func parseEuros(text string) (float64, bool) {
	text = htmlutil.CleanText(text)
	text = strings.TrimSpace(strings.TrimSuffix(text, "€"))
	text = strings.ReplaceAll(text, ",", ".")
	price, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, false
	}
	return price, true
}
