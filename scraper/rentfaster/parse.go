package rentfaster

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"rental-scraper/models"
)

const (
	descriptionSelector = "#listingview_full_desc"
	latitudeSelector    = `[property="rentfaster:location:latitude"]`
	longitudeSelector   = `[property="rentfaster:location:longitude"]`
	amenitySelector     = `[property="amenityFeature"]`
	extraPropSelector   = `[property="additionalProperty"]`
	unitsMarker         = "window.units ="
)

var errNoUnitsScript = errors.New("no script contains " + unitsMarker)

func parseDescription(doc *goquery.Document) (string, error) {
	sel := doc.Find(descriptionSelector).First()
	if sel.Length() == 0 {
		return "", fmt.Errorf("%s not found", descriptionSelector)
	}
	return strings.TrimSpace(sel.Text()), nil
}

func parseCoordinates(doc *goquery.Document) (lat, lon float64, err error) {
	if lat, err = parseMetaFloat(doc, latitudeSelector); err != nil {
		return 0, 0, err
	}
	if lon, err = parseMetaFloat(doc, longitudeSelector); err != nil {
		return 0, 0, err
	}
	return lat, lon, nil
}

func parseMetaFloat(doc *goquery.Document, selector string) (float64, error) {
	content, ok := doc.Find(selector).First().Attr("content")
	if !ok {
		return 0, fmt.Errorf("%s not found", selector)
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(content), 64)
	if err != nil {
		return 0, fmt.Errorf("%s: bad coordinate %q", selector, content)
	}
	return f, nil
}

// parseAmenities returns amenity texts first, then additional properties,
// each in document order.
func parseAmenities(doc *goquery.Document) []string {
	var out []string
	for _, selector := range []string{amenitySelector, extraPropSelector} {
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			if text := strings.TrimSpace(s.Text()); text != "" {
				out = append(out, text)
			}
		})
	}
	return out
}

// parseUnitStats finds the units script (the last one wins when the page has
// several) and returns the last unit of its array.
func parseUnitStats(doc *goquery.Document) (map[string]any, error) {
	var script string
	found := false
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		if text := s.Text(); strings.Contains(text, unitsMarker) {
			script = text
			found = true
		}
	})
	if !found {
		return nil, errNoUnitsScript
	}

	literal, err := extractUnitsArray(script)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(strings.NewReader(literal))
	dec.UseNumber()
	var units []any
	if err := dec.Decode(&units); err != nil {
		return nil, fmt.Errorf("decode units: %w", err)
	}
	if len(units) == 0 {
		return nil, fmt.Errorf("units array is empty")
	}
	last, ok := units[len(units)-1].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("last unit is %T, not an object", units[len(units)-1])
	}
	return last, nil
}

// extractUnitsArray cuts the array literal out of the script: from the first
// '[' after the marker to the first ']' after that.
func extractUnitsArray(script string) (string, error) {
	i := strings.Index(script, unitsMarker)
	if i < 0 {
		return "", errNoUnitsScript
	}
	rest := script[i+len(unitsMarker):]

	start := strings.IndexByte(rest, '[')
	if start < 0 {
		return "", fmt.Errorf("units script has no '['")
	}
	end := strings.IndexByte(rest[start:], ']')
	if end < 0 {
		return "", fmt.Errorf("units script has no closing ']'")
	}
	return rest[start : start+end+1], nil
}

// statFields converts a unit object into record values, sorted by key.
func statFields(stats map[string]any) ([]string, []models.Value) {
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	outKeys := make([]string, 0, len(keys))
	values := make([]models.Value, 0, len(keys))
	for _, k := range keys {
		v, ok := models.FromJSON(stats[k])
		if !ok {
			continue
		}
		outKeys = append(outKeys, k)
		values = append(values, v)
	}
	return outKeys, values
}
