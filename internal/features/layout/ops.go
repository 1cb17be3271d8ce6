package layout

import (
	"slices"

	"go-crm-reports/internal/common/models"
)

// List operations on a displayed card list. They never modify their input
// and treat impossible moves as no-ops.

func indexOf(cards []models.CardSpec, id string) int {
	return slices.IndexFunc(cards, func(c models.CardSpec) bool { return c.ID == id })
}

// Reorder moves the card at index from to index to.
func Reorder(cards []models.CardSpec, from, to int) []models.CardSpec {
	out := slices.Clone(cards)
	if from < 0 || from >= len(out) || to < 0 || to >= len(out) || from == to {
		return out
	}
	card := out[from]
	out = slices.Delete(out, from, from+1)
	return slices.Insert(out, to, card)
}

func MoveUp(cards []models.CardSpec, id string) []models.CardSpec {
	i := indexOf(cards, id)
	if i <= 0 {
		return slices.Clone(cards)
	}
	return Reorder(cards, i, i-1)
}

func MoveDown(cards []models.CardSpec, id string) []models.CardSpec {
	i := indexOf(cards, id)
	if i < 0 || i == len(cards)-1 {
		return slices.Clone(cards)
	}
	return Reorder(cards, i, i+1)
}

func Remove(cards []models.CardSpec, id string) []models.CardSpec {
	return slices.DeleteFunc(slices.Clone(cards), func(c models.CardSpec) bool { return c.ID == id })
}

// Add appends card unless a card with the same id is already shown; ids are
// render keys downstream and must stay unique.
func Add(cards []models.CardSpec, card models.CardSpec) []models.CardSpec {
	out := slices.Clone(cards)
	if card.ID == "" || indexOf(out, card.ID) >= 0 {
		return out
	}
	return append(out, normalizeCard(card))
}

func normalizeCard(c models.CardSpec) models.CardSpec {
	if c.ColSpan != 1 && c.ColSpan != 2 {
		c.ColSpan = c.Component.DefaultColSpan()
	}
	return c
}

// Normalize guarantees a valid colSpan on every card and drops cards whose
// id was already seen.
func Normalize(cards []models.CardSpec) []models.CardSpec {
	out := make([]models.CardSpec, 0, len(cards))
	seen := make(map[string]bool, len(cards))
	for _, c := range cards {
		if c.ID == "" || seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		out = append(out, normalizeCard(c))
	}
	return out
}

// Partition returns the catalog cards that are not displayed, in catalog
// order, so available and displayed never share an id.
func Partition(displayed []models.CardSpec) []models.CardSpec {
	available := []models.CardSpec{}
	for _, c := range Catalog() {
		if indexOf(displayed, c.ID) < 0 {
			available = append(available, c)
		}
	}
	return available
}

// Rows groups cards into grid rows of at most two columns. A two column card
// always gets a row of its own.
func Rows(cards []models.CardSpec) [][]models.CardSpec {
	var rows [][]models.CardSpec
	var open []models.CardSpec
	for _, c := range Normalize(cards) {
		if c.ColSpan == 2 {
			if open != nil {
				rows = append(rows, open)
				open = nil
			}
			rows = append(rows, []models.CardSpec{c})
			continue
		}
		open = append(open, c)
		if len(open) == 2 {
			rows = append(rows, open)
			open = nil
		}
	}
	if open != nil {
		rows = append(rows, open)
	}
	return rows
}
