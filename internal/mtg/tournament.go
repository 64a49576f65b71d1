package mtg

import "time"

// TournamentDescriptor is one row of a format's "last events" listing.
type TournamentDescriptor struct {
	ExternalID string
	Name       string
	URL        string
	EventDate  time.Time
	FormatCode string
}

// DeckResultDescriptor is one player result on a tournament page.
type DeckResultDescriptor struct {
	ExternalDeckID string
	TournamentID   string
	FormatCode     string
	Player         string
	DeckName       string
	Link           string
	// Position is always >= 1, ranges like "5-8" keep the second bound.
	Position int
}

// DeckList is a parsed deck export. Quantities are always positive.
type DeckList struct {
	Format    string
	Name      string
	Owner     string
	Main      map[string]int
	Sideboard map[string]int
}

func NewDeckList() DeckList {
	return DeckList{
		Main:      map[string]int{},
		Sideboard: map[string]int{},
	}
}

// Count returns the number of physical cards in the main deck and sideboard.
func (d DeckList) Count() (main, sideboard int) {
	for _, n := range d.Main {
		main += n
	}
	for _, n := range d.Sideboard {
		sideboard += n
	}
	return main, sideboard
}
