package catalog

import (
	"sort"
	"strings"
	"unicode"

	"github.com/graybeam/storefront-backend/pkg/db/models"
)

// Match tier scores. A query token's score against a field is the best tier
// it reaches, weighted by the field it matched in. Products whose averaged
// token score falls below scoreThreshold are dropped.
const (
	scoreExact       = 1.0
	scorePrefix      = 0.85
	scoreSubstring   = 0.7
	scoreSubsequence = 0.45

	scoreThreshold = 0.3
)

var fieldWeights = []struct {
	weight float64
	value  func(models.Product) string
}{
	{1.0, func(p models.Product) string { return p.Name }},
	{0.9, func(p models.Product) string { return p.Brand }},
	{0.8, func(p models.Product) string { return p.Category }},
	{0.6, func(p models.Product) string { return p.Description }},
}

type scoredProduct struct {
	product models.Product
	score   float64
	ordinal int
}

// rankProducts scores every product against the tokenized query and returns
// matches best first. Ties keep stored catalog order.
func rankProducts(products []models.Product, query string) []models.Product {
	tokens := tokenize(query)
	if len(tokens) == 0 {
		return products
	}

	matches := make([]scoredProduct, 0, len(products))
	for i, product := range products {
		score := scoreProduct(product, tokens)
		if score < scoreThreshold {
			continue
		}
		matches = append(matches, scoredProduct{product: product, score: score, ordinal: i})
	}

	sort.SliceStable(matches, func(a, b int) bool {
		if matches[a].score != matches[b].score {
			return matches[a].score > matches[b].score
		}
		return matches[a].ordinal < matches[b].ordinal
	})

	out := make([]models.Product, len(matches))
	for i, match := range matches {
		out[i] = match.product
	}
	return out
}

// scoreProduct averages each query token's best field score.
func scoreProduct(product models.Product, tokens []string) float64 {
	var sum float64
	for _, token := range tokens {
		var best float64
		for _, field := range fieldWeights {
			if score := scoreToken(field.value(product), token) * field.weight; score > best {
				best = score
			}
		}
		sum += best
	}
	return sum / float64(len(tokens))
}

// scoreToken returns the best match tier the token reaches in the field.
func scoreToken(field, token string) float64 {
	fieldTokens := tokenize(field)
	var best float64
	for _, candidate := range fieldTokens {
		switch {
		case candidate == token:
			return scoreExact
		case strings.HasPrefix(candidate, token):
			if scorePrefix > best {
				best = scorePrefix
			}
		case strings.Contains(candidate, token):
			if scoreSubstring > best {
				best = scoreSubstring
			}
		case isSubsequence(token, candidate):
			if scoreSubsequence > best {
				best = scoreSubsequence
			}
		}
	}
	return best
}

// isSubsequence reports whether every rune of needle appears in haystack in
// order, which tolerates dropped characters ("snekers" matches "sneakers").
func isSubsequence(needle, haystack string) bool {
	if needle == "" {
		return false
	}
	runes := []rune(needle)
	i := 0
	for _, r := range haystack {
		if i < len(runes) && r == runes[i] {
			i++
		}
	}
	return i == len(runes)
}

func tokenize(value string) []string {
	lowered := strings.ToLower(value)
	return strings.FieldsFunc(lowered, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
