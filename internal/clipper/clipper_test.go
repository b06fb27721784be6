package clipper

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

const jsonLDPage = `
<html>
	<head>
		<script type="application/ld+json">{"@type": "WebSite", "name": "Cuisine"}</script>
		<script type="application/ld+json">
		{"@context": "https://schema.org", "@graph": [
			{"@type": "BreadcrumbList"},
			{"@type": ["Recipe"], "name": " Riz au lait ", "description": "Dessert",
			 "recipeYield": ["4", "4 personnes"],
			 "recipeIngredient": ["1 litre de lait", "120 g de riz rond", "½ gousse de vanille", "Sucre"]}
		]}
		</script>
	</head>
	<body><h1>Ignored title</h1></body>
</html>`

const microdataPage = `
<html><body>
	<div itemscope itemtype="https://schema.org/Recipe">
		<h1 itemprop="name">Omelette</h1>
		<span itemprop="recipeYield">2 personnes</span>
		<ul>
			<li itemprop="recipeIngredient">4 œufs</li>
			<li itemprop="recipeIngredient">20 cl de crème</li>
		</ul>
	</div>
</body></html>`

func TestParseJSONLD(t *testing.T) {
	rec, err := Parse(strings.NewReader(jsonLDPage))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	want := &ClippedRecipe{
		Name:        "Riz au lait",
		Description: "Dessert",
		Servings:    4,
		Ingredients: []ClippedIngredient{
			{Raw: "1 litre de lait", Quantity: 1, Unit: "l", Name: "lait"},
			{Raw: "120 g de riz rond", Quantity: 120, Unit: "g", Name: "riz rond"},
			{Raw: "½ gousse de vanille", Quantity: 0.5, Unit: "gousse(s)", Name: "vanille"},
			{Raw: "Sucre", Name: "Sucre"},
		},
	}
	if diff := cmp.Diff(want, rec); diff != "" {
		t.Errorf("Parse mismatch (-want +got):\n%s", diff)
	}
}

func TestParseMicrodata(t *testing.T) {
	rec, err := Parse(strings.NewReader(microdataPage))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if rec.Name != "Omelette" {
		t.Errorf("Expected name 'Omelette', got '%s'", rec.Name)
	}
	if rec.Servings != 2 {
		t.Errorf("Expected 2 servings, got %d", rec.Servings)
	}
	if len(rec.Ingredients) != 2 || rec.Ingredients[1].Unit != "cl" || rec.Ingredients[1].Name != "crème" {
		t.Errorf("Unexpected ingredients: %+v", rec.Ingredients)
	}
}

func TestParseNoRecipe(t *testing.T) {
	_, err := Parse(strings.NewReader(`<html><body><p>Nothing to cook here.</p></body></html>`))
	if !errors.Is(err, ErrNoRecipe) {
		t.Errorf("Expected ErrNoRecipe, got %v", err)
	}
}

func TestParseIngredient(t *testing.T) {
	tests := []struct {
		line string
		want ClippedIngredient
	}{
		{"200g de riz", ClippedIngredient{Quantity: 200, Unit: "g", Name: "riz"}},
		{"1,5 kg d'épaule de veau", ClippedIngredient{Quantity: 1.5, Unit: "kg", Name: "épaule de veau"}},
		{"2 oignons", ClippedIngredient{Quantity: 2, Name: "oignons"}},
		{"3 gousses d’ail", ClippedIngredient{Quantity: 3, Unit: "gousse(s)", Name: "ail"}},
		{"1/2 l de bouillon", ClippedIngredient{Quantity: 0.5, Unit: "l", Name: "bouillon"}},
		{"2 cuillères à soupe d'huile d'olive", ClippedIngredient{Quantity: 2, Unit: "cuillère(s) à soupe", Name: "huile d'olive"}},
		{"1 pincée de sel", ClippedIngredient{Quantity: 1, Unit: "pincée(s)", Name: "sel"}},
		{"Poivre", ClippedIngredient{Name: "Poivre"}},
	}
	for _, tt := range tests {
		got := ParseIngredient(tt.line)
		if diff := cmp.Diff(tt.want, got, cmpopts.IgnoreFields(ClippedIngredient{}, "Raw"), cmpopts.EquateApprox(0, 1e-9)); diff != "" {
			t.Errorf("ParseIngredient(%q) mismatch (-want +got):\n%s", tt.line, diff)
		}
		if got.Raw != tt.line {
			t.Errorf("Expected Raw %q, got %q", tt.line, got.Raw)
		}
	}
}

func TestClipURL(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(jsonLDPage))
	}))
	defer ts.Close()

	c := NewClipper(5 * time.Second)

	t.Run("Success", func(t *testing.T) {
		rec, err := c.ClipURL(context.Background(), ts.URL+"/riz")
		if err != nil {
			t.Fatalf("ClipURL failed: %v", err)
		}
		if rec.SourceURL != ts.URL+"/riz" {
			t.Errorf("Expected source URL to be recorded, got '%s'", rec.SourceURL)
		}
		if math.Abs(rec.Ingredients[2].Quantity-0.5) > 1e-9 {
			t.Errorf("Expected ½ gousse, got %v", rec.Ingredients[2].Quantity)
		}
	})

	t.Run("HTTPError", func(t *testing.T) {
		if _, err := c.ClipURL(context.Background(), ts.URL+"/missing"); err == nil {
			t.Error("Expected an error for a 404 page")
		}
	})
}
