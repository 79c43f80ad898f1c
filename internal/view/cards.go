package view

import (
	"math"
	"strings"

	"ebike_tours/internal/domain"
)

// Render-time defaults for cells the catalog left empty.
const (
	defaultRating    = 5.0
	defaultReviews   = 0
	defaultMaxPeople = 8
	defaultHighlight = "Scenic Views"
	placeholderImage = "https://via.placeholder.com/300"
)

// TourCard is a tour with every optional field resolved for display.
type TourCard struct {
	ID            string
	Name          string
	Category      string
	Description   string
	Difficulty    string
	Duration      string
	Location      string
	Image         string
	Price         string
	OriginalPrice string
	Stars         []bool // five entries, true when filled
	Rating        float64
	Reviews       int
	MaxPeople     int
	Highlight     string
	Featured      bool

	// detail page only
	Highlights        []string
	Includes          []string
	Itinerary         []string
	WhatToBring       []string
	DifficultyDetails string
	Gallery           string
}

func NewCard(t domain.Tour) TourCard {
	c := TourCard{
		ID:          t.ID,
		Name:        t.Name,
		Category:    t.Category,
		Description: t.Description,
		Difficulty:  t.Difficulty,
		Duration:    t.Duration,
		Location:    t.Location,
		Image:       t.Image,
		Price:       money(t.Price),
		Rating:      defaultRating,
		Reviews:     defaultReviews,
		MaxPeople:   defaultMaxPeople,
		Highlight:   defaultHighlight,
		Featured:    bool(t.Featured),
	}
	if strings.TrimSpace(c.Image) == "" {
		c.Image = placeholderImage
	}
	if t.OriginalPrice != nil {
		c.OriginalPrice = money(*t.OriginalPrice)
	}
	if t.Rating != nil && *t.Rating > 0 {
		c.Rating = *t.Rating
	}
	if t.Reviews != nil {
		c.Reviews = *t.Reviews
	}
	if t.MaxPeople != nil && *t.MaxPeople > 0 {
		c.MaxPeople = *t.MaxPeople
	}
	if t.Highlights != nil {
		c.Highlights = lines(*t.Highlights)
		if len(c.Highlights) > 0 {
			c.Highlight = c.Highlights[0]
		}
	}
	if t.Includes != nil {
		c.Includes = lines(*t.Includes)
	}
	if t.Itinerary != nil {
		c.Itinerary = lines(*t.Itinerary)
	}
	if t.WhatToBring != nil {
		c.WhatToBring = lines(*t.WhatToBring)
	}
	if t.DifficultyDetails != nil {
		c.DifficultyDetails = *t.DifficultyDetails
	}
	if t.Gallery != nil {
		c.Gallery = *t.Gallery
	}

	// a partial star counts as a whole one
	filled := int(math.Ceil(c.Rating))
	c.Stars = make([]bool, 5)
	for i := range c.Stars {
		c.Stars[i] = i < filled
	}
	return c
}

func NewCards(ts []domain.Tour) []TourCard {
	out := make([]TourCard, 0, len(ts))
	for _, t := range ts {
		out = append(out, NewCard(t))
	}
	return out
}

// money prefixes a dollar sign unless the sheet already wrote a currency.
func money(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return p
	}
	for _, cur := range []string{"$", "€", "£", "LKR", "Rs"} {
		if strings.HasPrefix(p, cur) {
			return p
		}
	}
	return "$" + p
}

// lines splits a multi-line or comma-separated cell into trimmed items.
func lines(s string) []string {
	sep := "\n"
	if !strings.Contains(s, "\n") {
		sep = ","
	}
	var out []string
	for _, p := range strings.Split(s, sep) {
		if p = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(p), "-")); p != "" {
			out = append(out, p)
		}
	}
	return out
}
