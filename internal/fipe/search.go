package fipe

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	json "github.com/goccy/go-json"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ErrVehicleNotFound is returned when no FIPE entry matches a search.
var ErrVehicleNotFound = errors.New("vehicle not found in fipe table")

// catalogEntry is one row of a FIPE listing. Brand and year codes are
// strings but model codes are numbers, so the raw form is kept and
// rendered on demand.
type catalogEntry struct {
	Code json.RawMessage `json:"code"`
	Name string          `json:"name"`
}

func (e catalogEntry) code() string {
	return strings.Trim(string(e.Code), `"`)
}

// Search resolves a free-text make/model/year triple to its reference price
// by walking the brand, model and year catalogs. The vehicle form uses it to
// suggest a starting price, so matching is forgiving: accents, case and
// punctuation are ignored, and a name containing the query (or vice versa)
// counts.
func (c *Client) Search(ctx context.Context, makeName, modelName string, year int) (json.RawMessage, error) {
	brands, err := c.listCatalog(ctx, "/cars/brands")
	if err != nil {
		return nil, err
	}
	brand, found := matchEntry(brands, makeName)
	if !found {
		return nil, fmt.Errorf("%w: no brand matches %q", ErrVehicleNotFound, makeName)
	}

	models, err := c.listCatalog(ctx, fmt.Sprintf("/cars/brands/%s/models", brand.code()))
	if err != nil {
		return nil, err
	}
	model, found := matchEntry(models, modelName)
	if !found {
		return nil, fmt.Errorf("%w: no model matches %q", ErrVehicleNotFound, modelName)
	}

	years, err := c.listCatalog(ctx, fmt.Sprintf("/cars/brands/%s/models/%s/years", brand.code(), model.code()))
	if err != nil {
		return nil, err
	}
	yearEntry, found := matchYear(years, year)
	if !found {
		return nil, fmt.Errorf("%w: no %d entry for %s %s", ErrVehicleNotFound, year, makeName, modelName)
	}

	return c.Price(ctx, brand.code(), model.code(), yearEntry.code())
}

func (c *Client) listCatalog(ctx context.Context, path string) ([]catalogEntry, error) {
	body, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	var entries []catalogEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode fipe catalog %s: %w", path, err)
	}
	return entries, nil
}

func matchEntry(entries []catalogEntry, query string) (catalogEntry, bool) {
	want := normalizeName(query)
	if want == "" {
		return catalogEntry{}, false
	}
	for _, e := range entries {
		got := normalizeName(e.Name)
		if got == want || strings.Contains(got, want) || strings.Contains(want, got) {
			return e, true
		}
	}
	return catalogEntry{}, false
}

// matchYear finds the catalog entry for a model year. Year names carry the
// fuel variant ("1995 Gasolina"), so containment is the right check.
func matchYear(entries []catalogEntry, year int) (catalogEntry, bool) {
	want := strconv.Itoa(year)
	for _, e := range entries {
		if strings.Contains(e.Name, want) {
			return e, true
		}
	}
	return catalogEntry{}, false
}

var accentStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeName lowercases, strips accents, and collapses punctuation to
// single spaces, so "Citroën" matches "citroen" and "C4 Pallas" matches
// "c4-pallas".
func normalizeName(s string) string {
	lowered := strings.ToLower(s)
	stripped, _, err := transform.String(accentStripper, lowered)
	if err != nil {
		stripped = lowered
	}

	var b strings.Builder
	for _, r := range stripped {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
