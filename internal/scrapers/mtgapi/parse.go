package mtgapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"mtgstats-backend/internal/mtg"
	"regexp"
	"strings"
	"time"
)

var (
	snakeCaseWordRegex  = regexp.MustCompile(`(.)([A-Z][a-z]+)`)
	snakeCaseUpperRegex = regexp.MustCompile(`([a-z0-9])([A-Z])`)
)

// ToSnakeCase converts api keys like "manaCost" or "multiverseId" to snake case.
func ToSnakeCase(name string) string {
	name = snakeCaseWordRegex.ReplaceAllString(name, "${1}_${2}")
	name = snakeCaseUpperRegex.ReplaceAllString(name, "${1}_${2}")
	return strings.ToLower(name)
}

// snakeCaseKeys renames the top level keys of a json object.
func snakeCaseKeys(raw json.RawMessage) (map[string]json.RawMessage, error) {
	var object map[string]json.RawMessage
	err := json.Unmarshal(raw, &object)
	if err != nil {
		return nil, err
	}
	out := make(map[string]json.RawMessage, len(object))
	for key, value := range object {
		out[ToSnakeCase(key)] = value
	}
	return out, nil
}

func decodeSnakeCase(raw json.RawMessage, out any) (map[string]json.RawMessage, error) {
	object, err := snakeCaseKeys(raw)
	if err != nil {
		return nil, err
	}
	renamed, err := json.Marshal(object)
	if err != nil {
		return nil, err
	}
	err = json.Unmarshal(renamed, out)
	if err != nil {
		return nil, err
	}
	return object, nil
}

// ParseCard decodes a card object of the api.
func ParseCard(raw json.RawMessage) (mtg.Card, error) {
	var card mtg.Card
	_, err := decodeSnakeCase(raw, &card)
	if err != nil {
		return mtg.Card{}, fmt.Errorf("parse card: %w", err)
	}
	if card.ID == "" || card.Name == "" {
		return mtg.Card{}, fmt.Errorf("parse card: missing id or name")
	}
	return card, nil
}

// ParseSet decodes a set object of the api, its release date is read in loc.
func ParseSet(raw json.RawMessage, loc *time.Location) (mtg.Set, error) {
	var set mtg.Set
	object, err := decodeSnakeCase(raw, &set)
	if err != nil {
		return mtg.Set{}, fmt.Errorf("parse set: %w", err)
	}
	if set.Code == "" {
		return mtg.Set{}, fmt.Errorf("parse set %q: missing code", set.Name)
	}
	set.IsRelevant = true

	if booster, ok := object["booster"]; ok {
		var slots []any
		if json.Unmarshal(booster, &slots) == nil {
			set.HasBooster = len(slots) > 0
		}
	}

	if releaseDate, ok := object["release_date"]; ok {
		var text string
		err = json.Unmarshal(releaseDate, &text)
		if err != nil {
			return mtg.Set{}, fmt.Errorf("parse set %s: release date: %w", set.Code, err)
		}
		set.ReleaseDate, err = time.ParseInLocation(time.DateOnly, text, loc)
		if err != nil {
			return mtg.Set{}, fmt.Errorf("parse set %s: release date: %w", set.Code, err)
		}
	}

	return set, nil
}

// ParseReleaseDate reads card release dates, which are given as a full date,
// a year and month or only a year.
func ParseReleaseDate(text string, loc *time.Location) (time.Time, bool) {
	for _, layout := range []string{time.DateOnly, "2006-01", "2006"} {
		t, err := time.ParseInLocation(layout, text, loc)
		if err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

var ErrEmptyRarity = errors.New("empty rarity")

var rarityConversion = map[string]string{
	"land":                     mtg.RARITY_BASIC,
	"marketing":                mtg.RARITY_SPECIAL,
	"checklist":                mtg.RARITY_SPECIAL,
	"draft-matters":            mtg.RARITY_SPECIAL,
	"power nine":               mtg.RARITY_RARE,
	"double faced":             mtg.RARITY_SPECIAL,
	"double faced common":      mtg.RARITY_COMMON,
	"double faced uncommon":    mtg.RARITY_UNCOMMON,
	"double faced rare":        mtg.RARITY_RARE,
	"double faced mythic rare": mtg.RARITY_MYTHIC,
	"timeshifted purple":       mtg.RARITY_SPECIAL,
	"timeshifted common":       mtg.RARITY_COMMON,
	"timeshifted uncommon":     mtg.RARITY_UNCOMMON,
	"timeshifted rare":         mtg.RARITY_RARE,
}

// ParseRarity converts both card rarities ("Mythic Rare") and booster slot
// rarities ("foil double faced rare") to a single letter rarity.
func ParseRarity(rarity string) (mtg.Rarity, error) {
	if rarity == "foil" {
		return mtg.Rarity{Code: mtg.RARITY_COMMON, Foil: true}, nil
	}

	foil := false
	if after, ok := strings.CutPrefix(rarity, "foil "); ok {
		foil = true
		rarity = after
	}
	if converted, ok := rarityConversion[rarity]; ok {
		rarity = converted
	}
	if rarity == "" {
		return mtg.Rarity{}, ErrEmptyRarity
	}

	return mtg.Rarity{
		Code: strings.ToUpper(rarity[:1]),
		Foil: foil,
	}, nil
}
