package tourapi

import (
	"bytes"
	"math"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"

	"ebike_tours/internal/domain"
)

// The catalog is a spreadsheet export: a cell may arrive as a string, a
// number, or an empty string depending on how it was typed. The wire types
// below absorb that once so domain.Tour only carries clean values.

// text accepts a JSON string, number, or boolean; null becomes "".
type text string

func (t *text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || b[0] == 'n':
		*t = ""
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = text(s)
	case b[0] == '{' || b[0] == '[':
		*t = ""
	default:
		*t = text(b)
	}
	return nil
}

// number accepts a JSON number or a numeric string ("4,5" allowed). Empty,
// null, and unparsable cells are absent.
type number struct {
	v  float64
	ok bool
}

func (n *number) UnmarshalJSON(b []byte) error {
	*n = number{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil
	}
	var s string
	switch b[0] {
	case '"':
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		s = string(b)
	default:
		return nil
	}
	if s == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		*n = number{v: f, ok: true}
	}
	return nil
}

// marker keeps the raw most_popular cell; only strings count.
type marker string

func (m *marker) UnmarshalJSON(b []byte) error {
	*m = ""
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] != '"' {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return nil
	}
	*m = marker(s)
	return nil
}

type wireTour struct {
	ID                text   `json:"id"`
	Name              text   `json:"name"`
	Category          text   `json:"category"`
	Duration          text   `json:"duration"`
	Difficulty        text   `json:"difficulty"`
	Price             text   `json:"price"`
	OriginalPrice     text   `json:"originalPrice"`
	Image             text   `json:"image"`
	Gallery           text   `json:"gallery"`
	Rating            number `json:"rating"`
	Reviews           number `json:"reviews"`
	MaxPeople         number `json:"maxPeople"`
	Location          text   `json:"location"`
	Description       text   `json:"description"`
	Highlights        text   `json:"highlights"`
	Includes          text   `json:"includes"`
	Itinerary         text   `json:"itinerary"`
	WhatToBring       text   `json:"whatToBring"`
	DifficultyDetails text   `json:"difficulty_details"`
	MostPopular       marker `json:"most_popular"`
}

func (w wireTour) toDomain() domain.Tour {
	return domain.Tour{
		ID:                string(w.ID),
		Name:              string(w.Name),
		Category:          string(w.Category),
		Duration:          string(w.Duration),
		Difficulty:        string(w.Difficulty),
		Price:             string(w.Price),
		OriginalPrice:     ptrStr(string(w.OriginalPrice)),
		Location:          string(w.Location),
		Description:       string(w.Description),
		Image:             string(w.Image),
		Gallery:           ptrStr(string(w.Gallery)),
		Rating:            w.Rating.asFloat(),
		Reviews:           w.Reviews.asInt(),
		MaxPeople:         w.MaxPeople.asInt(),
		Highlights:        ptrStr(string(w.Highlights)),
		Includes:          ptrStr(string(w.Includes)),
		Itinerary:         ptrStr(string(w.Itinerary)),
		WhatToBring:       ptrStr(string(w.WhatToBring)),
		DifficultyDetails: ptrStr(string(w.DifficultyDetails)),
		Featured:          domain.ParseFlag(string(w.MostPopular)),
	}
}

func (n number) asFloat() *float64 {
	if !n.ok {
		return nil
	}
	f := n.v
	return &f
}

func (n number) asInt() *int {
	if !n.ok {
		return nil
	}
	i := int(math.Round(n.v))
	return &i
}

// ptrStr treats blank cells as absent.
func ptrStr(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

// jsonKind names the top-level JSON value in b by its first byte.
func jsonKind(b []byte) string {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return "empty body"
	}
	switch b[0] {
	case '[':
		return "array"
	case '{':
		return "object"
	case '"':
		return "string"
	case 't', 'f':
		return "boolean"
	case 'n':
		return "null"
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		return "number"
	}
	return "invalid"
}
