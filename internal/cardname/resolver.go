package cardname

import (
	"context"
	"errors"
	"fmt"
	"mtgstats-backend/internal/components/assert"
	"mtgstats-backend/internal/mtg"
	"net/url"
	"strings"

	"github.com/antzucaro/matchr"
)

var ErrNotFound = errors.New("card name not found")

// suggestionThreshold is the minimum Jaro-Winkler similarity for a stored name
// to be suggested for an unknown one.
const suggestionThreshold = 0.9

// Store is the card name storage the resolver reads.
type Store interface {
	HasCardName(ctx context.Context, name string) (bool, error)
	CardNames(ctx context.Context) ([]string, error)
}

type Resolver struct {
	store     Store
	overrides Overrides

	// aliases maps market facing names back to the stored name
	aliases map[string]string
	// faces maps every face of a multi-face card to its combined market name
	faces      map[string]string
	irrelevant map[string]struct{}
}

func NewResolver(store Store, overrides Overrides) *Resolver {
	assert.NotNil(store)

	r := &Resolver{
		store:      store,
		overrides:  overrides,
		aliases:    map[string]string{},
		faces:      map[string]string{},
		irrelevant: map[string]struct{}{},
	}
	for name, marketName := range overrides.MarketNames {
		r.aliases[marketName] = name
	}
	for _, combined := range overrides.MultiFaceNames {
		faces := splitFaces(combined)
		if len(faces) == 0 {
			continue
		}
		r.aliases[combined] = faces[0]
		for _, face := range faces {
			r.faces[face] = combined
		}
	}
	for _, set := range overrides.IrrelevantSets {
		r.irrelevant[set] = struct{}{}
	}
	return r
}

func splitFaces(name string) []string {
	var faces []string
	for _, face := range strings.Split(name, "/") {
		face = strings.TrimSpace(face)
		if face != "" {
			faces = append(faces, face)
		}
	}
	return faces
}

// Resolve maps a name read from a deck list to its stored card name.
//
// The name is looked up as is, then through the market name aliases. An
// unknown name yields an error wrapping ErrNotFound, with the closest stored
// name when one is similar enough.
func (r *Resolver) Resolve(ctx context.Context, name string) (mtg.CardName, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return mtg.CardName{}, fmt.Errorf("%w: empty name", ErrNotFound)
	}

	candidates := []string{name}
	if alias, ok := r.aliases[name]; ok {
		candidates = append(candidates, alias)
	}
	for _, candidate := range candidates {
		ok, err := r.store.HasCardName(ctx, candidate)
		if err != nil {
			return mtg.CardName{}, fmt.Errorf("resolve %q: %w", name, err)
		}
		if ok {
			return mtg.CardName{Name: candidate}, nil
		}
	}

	suggestion, err := r.suggest(ctx, name)
	if err != nil {
		return mtg.CardName{}, fmt.Errorf("resolve %q: %w", name, err)
	}
	if suggestion != "" {
		return mtg.CardName{}, fmt.Errorf("%w: %q (did you mean %q?)", ErrNotFound, name, suggestion)
	}
	return mtg.CardName{}, fmt.Errorf("%w: %q", ErrNotFound, name)
}

func (r *Resolver) suggest(ctx context.Context, name string) (string, error) {
	names, err := r.store.CardNames(ctx)
	if err != nil {
		return "", err
	}

	best := ""
	bestScore := suggestionThreshold
	for _, candidate := range names {
		score := matchr.JaroWinkler(strings.ToLower(name), strings.ToLower(candidate), false)
		if score >= bestScore {
			best = candidate
			bestScore = score
		}
	}
	return best, nil
}

// MarketName returns the name the price market lists a printing under.
func (r *Resolver) MarketName(card mtg.Card) string {
	if name, ok := r.overrides.MarketNames[card.Name]; ok {
		return name
	}
	for _, rule := range r.overrides.VersionRules {
		if rule.matches(card.Name, card.Set, card.Number) {
			return fmt.Sprintf("%s (Version %d)", card.Name, rule.Version)
		}
	}
	if combined, ok := r.faces[card.Name]; ok {
		return combined
	}

	if len(card.Names) > 1 {
		switch card.Layout {
		case mtg.LAYOUT_DOUBLE_FACED, mtg.LAYOUT_MELD:
			return strings.Join(card.Names, " / ")
		case mtg.LAYOUT_SPLIT, mtg.LAYOUT_AFTERMATH:
			return strings.Join(card.Names, " // ")
		}
	}
	return card.Name
}

// MarketSetName returns the name the price market lists a set under.
func (r *Resolver) MarketSetName(set mtg.Set) string {
	if set.MarketName != "" {
		return set.MarketName
	}
	if name, ok := r.overrides.SetMarketNames[set.Code]; ok {
		return name
	}
	return set.Name
}

// PostProcessSet flags the sets whose printings are never relevant and fills
// in the market name of the set.
func (r *Resolver) PostProcessSet(set *mtg.Set) {
	if _, ok := r.irrelevant[set.Code]; ok {
		set.IsRelevant = false
		return
	}
	if name, ok := r.overrides.SetMarketNames[set.Code]; ok {
		set.MarketName = name
	}
}

// PostProcessCard fills in the market name of a card when it differs from its name.
func (r *Resolver) PostProcessCard(card *mtg.Card) {
	name := r.MarketName(*card)
	if name != card.Name {
		card.MarketName = name
	}
}

// PriceUrl builds the product page url of a printing on the price market.
func (r *Resolver) PriceUrl(card mtg.Card, set mtg.Set) string {
	cardName := card.MarketName
	if cardName == "" {
		cardName = r.MarketName(card)
	}
	replacer := strings.NewReplacer(
		"{set}", url.QueryEscape(r.MarketSetName(set)),
		"{card}", url.QueryEscape(cardName),
	)
	return replacer.Replace(r.overrides.PriceUrlTemplate)
}
