// Package view builds the display models for species cards and the detail
// dialog, and renders them as HTML.
package view

import (
	"strings"

	"speciesdesk/pkg/domain"
)

// PreviewLength is the number of description characters shown on a card.
const PreviewLength = 150

// Card is the list entry for one species.
type Card struct {
	ID             string `json:"id"`
	Image          string `json:"image,omitempty"`
	CommonName     string `json:"common_name"`
	ScientificName string `json:"scientific_name"`
	Preview        string `json:"preview"`
	CanEdit        bool   `json:"can_edit"`
	CanDelete      bool   `json:"can_delete"`
}

// Details is the "learn more" content for one species.
type Details struct {
	ID              string         `json:"id"`
	CommonName      string         `json:"common_name"`
	ScientificName  string         `json:"scientific_name"`
	Kingdom         domain.Kingdom `json:"kingdom"`
	TotalPopulation *int64         `json:"total_population,omitempty"`
	Description     string         `json:"description"`
	Image           string         `json:"image,omitempty"`
}

// NewCard builds the card for record as seen by actingUser.
func NewCard(record domain.Species, actingUser string) Card {
	owned := record.OwnedBy(actingUser)
	return Card{
		ID:             record.ID,
		Image:          text(record.Image),
		CommonName:     text(record.CommonName),
		ScientificName: record.ScientificName,
		Preview:        Preview(record.Description),
		CanEdit:        owned,
		CanDelete:      owned,
	}
}

// NewCards builds cards in the given order.
func NewCards(records []domain.Species, actingUser string) []Card {
	cards := make([]Card, 0, len(records))
	for _, r := range records {
		cards = append(cards, NewCard(r, actingUser))
	}
	return cards
}

// NewDetails builds the detail view. A missing population stays nil so it is
// not shown.
func NewDetails(record domain.Species) Details {
	d := Details{
		ID:             record.ID,
		CommonName:     text(record.CommonName),
		ScientificName: record.ScientificName,
		Kingdom:        record.Kingdom,
		Description:    text(record.Description),
		Image:          text(record.Image),
	}
	if record.TotalPopulation != nil {
		n := *record.TotalPopulation
		d.TotalPopulation = &n
	}
	return d
}

// Preview cuts description to PreviewLength characters, trims it and appends
// an ellipsis. An absent or empty description yields "".
func Preview(description *string) string {
	if description == nil || *description == "" {
		return ""
	}
	runes := []rune(*description)
	if len(runes) > PreviewLength {
		runes = runes[:PreviewLength]
	}
	return strings.TrimSpace(string(runes)) + "..."
}

func text(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
