package mtg

import "time"

type Layout string

const (
	LAYOUT_NORMAL       Layout = "normal"
	LAYOUT_SPLIT        Layout = "split"
	LAYOUT_FLIP         Layout = "flip"
	LAYOUT_MELD         Layout = "meld"
	LAYOUT_DOUBLE_FACED Layout = "double-faced"
	LAYOUT_AFTERMATH    Layout = "aftermath"
)

// Rarity is the single letter rarity code: C, U, R, M, S (special) or B (basic land).
type Rarity struct {
	Code string
	Foil bool
}

const (
	RARITY_COMMON   = "C"
	RARITY_UNCOMMON = "U"
	RARITY_RARE     = "R"
	RARITY_MYTHIC   = "M"
	RARITY_SPECIAL  = "S"
	RARITY_BASIC    = "B"
)

// CardName is the canonical stored name shared by every printing of a card.
type CardName struct {
	Name string
}

type Legality struct {
	Format   string `json:"format"`
	Legality string `json:"legality"`
}

// Card is one printing of a card, decoded from the snake_cased card api payload.
type Card struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Names        []string   `json:"names"`
	ManaCost     string     `json:"mana_cost"`
	Cmc          float64    `json:"cmc"`
	Colors       []string   `json:"colors"`
	Type         string     `json:"type"`
	Types        []string   `json:"types"`
	Rarity       string     `json:"rarity"`
	Set          string     `json:"set"`
	Text         string     `json:"text"`
	Artist       string     `json:"artist"`
	Number       string     `json:"number"`
	Layout       Layout     `json:"layout"`
	MultiverseID int64      `json:"multiverseid"`
	Printings    []string   `json:"printings"`
	Legalities   []Legality `json:"legalities"`
	ReleaseDate  string     `json:"release_date"`

	// MarketName overrides the name used on the price market when not empty.
	MarketName string `json:"-"`
	IsRelevant bool   `json:"-"`
}

// Set is a card set, decoded from the snake_cased set api payload.
type Set struct {
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	Border      string    `json:"border"`
	Block       string    `json:"block"`
	OnlineOnly  bool      `json:"online_only"`
	HasBooster  bool      `json:"-"`
	ReleaseDate time.Time `json:"-"`

	MarketName string `json:"-"`
	IsRelevant bool   `json:"-"`
}

// CardPriceSnapshot is the market state of a card on a given day, unique per (card, date).
type CardPriceSnapshot struct {
	CardID         string
	Date           time.Time
	AvailableItems int
	MinPrice       *float64
	MeanPrice      *float64
	AvailableFoils *int
	MinFoil        *float64
}
