// Package clipper reads recipes published on web pages.
package clipper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// ErrNoRecipe is returned when a page carries no recognizable recipe.
var ErrNoRecipe = errors.New("no recipe found on page")

// Clipper fetches recipe pages over HTTP.
type Clipper struct {
	client *http.Client
}

// ClippedRecipe is the recipe data found on a page.
type ClippedRecipe struct {
	Name        string
	Description string
	Servings    int
	Ingredients []ClippedIngredient
	SourceURL   string
}

// ClippedIngredient is one parsed ingredient line.
type ClippedIngredient struct {
	Raw      string
	Quantity float64 // 0 when the line states no amount
	Unit     string  // empty for countable items
	Name     string
}

// NewClipper creates a new Clipper instance.
func NewClipper(timeout time.Duration) *Clipper {
	return &Clipper{client: &http.Client{Timeout: timeout}}
}

// ClipURL fetches the page at url and extracts its recipe.
func (c *Clipper) ClipURL(ctx context.Context, url string) (*ClippedRecipe, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch content: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch URL: status %d", resp.StatusCode)
	}

	rec, err := Parse(resp.Body)
	if err != nil {
		return nil, err
	}
	rec.SourceURL = url
	return rec, nil
}

// Parse extracts a recipe from an HTML document. schema.org JSON-LD is
// preferred; microdata attributes are used as a fallback.
func Parse(r io.Reader) (*ClippedRecipe, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var found *ClippedRecipe
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var raw any
		if err := json.Unmarshal([]byte(s.Text()), &raw); err != nil {
			return true
		}
		if node := findRecipeNode(raw); node != nil {
			found = fromJSONLD(node)
			return false
		}
		return true
	})
	if found == nil {
		found = fromMicrodata(doc)
	}
	if found == nil || len(found.Ingredients) == 0 {
		return nil, ErrNoRecipe
	}
	return found, nil
}

// findRecipeNode walks arrays and @graph containers looking for a Recipe.
func findRecipeNode(v any) map[string]any {
	switch n := v.(type) {
	case []any:
		for _, item := range n {
			if node := findRecipeNode(item); node != nil {
				return node
			}
		}
	case map[string]any:
		if isRecipeType(n["@type"]) {
			return n
		}
		if graph, ok := n["@graph"]; ok {
			return findRecipeNode(graph)
		}
	}
	return nil
}

func isRecipeType(v any) bool {
	switch t := v.(type) {
	case string:
		return t == "Recipe"
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && s == "Recipe" {
				return true
			}
		}
	}
	return false
}

func fromJSONLD(node map[string]any) *ClippedRecipe {
	rec := &ClippedRecipe{
		Name:        cleanText(stringValue(node["name"])),
		Description: cleanText(stringValue(node["description"])),
		Servings:    parseServings(node["recipeYield"]),
	}
	lines, _ := node["recipeIngredient"].([]any)
	if len(lines) == 0 {
		lines, _ = node["ingredients"].([]any)
	}
	for _, l := range lines {
		if s := cleanText(stringValue(l)); s != "" {
			rec.Ingredients = append(rec.Ingredients, ParseIngredient(s))
		}
	}
	return rec
}

func fromMicrodata(doc *goquery.Document) *ClippedRecipe {
	scope := doc.Find(`[itemtype*="schema.org/Recipe"]`).First()
	if scope.Length() == 0 {
		scope = doc.Selection
	}

	rec := &ClippedRecipe{
		Name:     cleanText(scope.Find(`[itemprop="name"]`).First().Text()),
		Servings: parseServings(scope.Find(`[itemprop="recipeYield"]`).First().Text()),
	}
	if rec.Name == "" {
		rec.Name = cleanText(doc.Find("h1").First().Text())
	}
	if desc, ok := scope.Find(`[itemprop="description"]`).First().Attr("content"); ok {
		rec.Description = cleanText(desc)
	} else {
		rec.Description = cleanText(scope.Find(`[itemprop="description"]`).First().Text())
	}

	scope.Find(`[itemprop="recipeIngredient"], [itemprop="ingredients"]`).Each(func(_ int, s *goquery.Selection) {
		if line := cleanText(s.Text()); line != "" {
			rec.Ingredients = append(rec.Ingredients, ParseIngredient(line))
		}
	})
	if rec.Name == "" && len(rec.Ingredients) == 0 {
		return nil
	}
	return rec
}

func stringValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case []any:
		if len(t) > 0 {
			return stringValue(t[0])
		}
	}
	return ""
}

var firstNumber = regexp.MustCompile(`\d+`)

// parseServings reads "4", "4 personnes" or ["6", "6 parts"]. Unknown yields count as 1.
func parseServings(v any) int {
	if f, ok := v.(float64); ok && f >= 1 {
		return int(f)
	}
	if n, err := strconv.Atoi(firstNumber.FindString(stringValue(v))); err == nil && n > 0 {
		return n
	}
	return 1
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var (
	ingredientLine = regexp.MustCompile(`^(\d+(?:[.,]\d+)?(?:\s*/\s*\d+)?|½|¼|¾|⅓|⅔)\s*(.*)$`)
	unitWord       = regexp.MustCompile(`(?i)^(kg|g|mg|cl|ml|dl|l|litres?|grammes?|cuill[eè]res? [àa] (?:soupe|caf[eé])|c\. ?[àa] (?:s|c)\.?|pinc[eé]es?|branches?|feuilles?|tranches?|sachets?|gousses?)(?:\.?\s+|\.?$)`)
	partitive      = regexp.MustCompile(`(?i)^(?:de la |de l['’]|du |des |de |d['’])`)
	vulgar         = map[string]float64{"½": 0.5, "¼": 0.25, "¾": 0.75, "⅓": 1.0 / 3, "⅔": 2.0 / 3}
)

// ParseIngredient splits a free-text line such as "200 g de riz" or
// "2 oignons" into quantity, unit and name.
func ParseIngredient(line string) ClippedIngredient {
	ing := ClippedIngredient{Raw: line, Name: line}

	m := ingredientLine.FindStringSubmatch(line)
	if m == nil {
		return ing
	}
	ing.Quantity = parseAmount(m[1])
	rest := m[2]

	if u := unitWord.FindStringSubmatch(rest); u != nil {
		ing.Unit = canonicalUnit(u[1])
		rest = rest[len(u[0]):]
	}
	ing.Name = strings.TrimSpace(partitive.ReplaceAllString(rest, ""))
	if ing.Name == "" {
		ing.Name = line
	}
	return ing
}

func parseAmount(s string) float64 {
	if v, ok := vulgar[s]; ok {
		return v
	}
	s = strings.ReplaceAll(s, " ", "")
	if num, den, ok := strings.Cut(s, "/"); ok {
		n, err1 := strconv.ParseFloat(num, 64)
		d, err2 := strconv.ParseFloat(den, 64)
		if err1 != nil || err2 != nil || d == 0 {
			return 0
		}
		return n / d
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return 0
	}
	return v
}

func canonicalUnit(u string) string {
	u = strings.ToLower(u)
	switch {
	case strings.HasPrefix(u, "litre"):
		return "l"
	case strings.HasPrefix(u, "gramme"):
		return "g"
	case strings.HasPrefix(u, "cuill") && strings.HasSuffix(u, "soupe"), strings.HasPrefix(u, "c.") && strings.Contains(u, "s"):
		return "cuillère(s) à soupe"
	case strings.HasPrefix(u, "cuill"), strings.HasPrefix(u, "c."):
		return "cuillère(s) à café"
	case strings.HasPrefix(u, "pinc"):
		return "pincée(s)"
	case strings.HasPrefix(u, "branche"):
		return "branche(s)"
	case strings.HasPrefix(u, "feuille"):
		return "feuille(s)"
	case strings.HasPrefix(u, "tranche"):
		return "tranche(s)"
	case strings.HasPrefix(u, "sachet"):
		return "sachet(s)"
	case strings.HasPrefix(u, "gousse"):
		return "gousse(s)"
	}
	return u
}
