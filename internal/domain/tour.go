package domain

// FeaturedMarker is the value the upstream sheet uses in `most_popular` to
// highlight a tour on the home page.
const FeaturedMarker = "Yes"

// Flag is a boolean decoded once at the catalog boundary from a string cell.
type Flag bool

// ParseFlag reports whether raw equals FeaturedMarker. No trimming or case
// folding: the sheet is authored by hand and only the exact marker counts.
func ParseFlag(raw string) Flag { return Flag(raw == FeaturedMarker) }

func (f Flag) Marker() string {
	if f {
		return FeaturedMarker
	}
	return "No"
}

type Tour struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Category      string  `json:"category"`
	Duration      string  `json:"duration"`
	Difficulty    string  `json:"difficulty"`
	Price         string  `json:"price"`
	OriginalPrice *string `json:"originalPrice,omitempty"`
	Location      string  `json:"location"`
	Description   string  `json:"description"`

	Image   string  `json:"image"`
	Gallery *string `json:"gallery,omitempty"`

	Rating    *float64 `json:"rating,omitempty"`
	Reviews   *int     `json:"reviews,omitempty"`
	MaxPeople *int     `json:"maxPeople,omitempty"`

	Highlights        *string `json:"highlights,omitempty"`
	Includes          *string `json:"includes,omitempty"`
	Itinerary         *string `json:"itinerary,omitempty"`
	WhatToBring       *string `json:"whatToBring,omitempty"`
	DifficultyDetails *string `json:"difficultyDetails,omitempty"`

	Featured Flag `json:"featured"`
}

// FilterFeatured returns the featured tours of ts in their original order.
func FilterFeatured(ts []Tour) []Tour {
	out := make([]Tour, 0, len(ts))
	for _, t := range ts {
		if t.Featured {
			out = append(out, t)
		}
	}
	return out
}
