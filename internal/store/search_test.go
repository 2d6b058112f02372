package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/chicoferreira/contratopublico-go/internal/models"
)

func TestBuildFilterExpressionEmptyFiltersIsEmptyString(t *testing.T) {
	assert.Equal(t, "", buildFilterExpression(nil))
	assert.Equal(t, "", buildFilterExpression(&models.Filters{}))
}

func TestBuildFilterExpressionCombinesClauses(t *testing.T) {
	minID := int64(10)
	maxPrice := int64(50000)
	f := &models.Filters{MinID: &minID, MaxPrice: &maxPrice, Contracted: "Acme"}
	expr := buildFilterExpression(f)
	assert.Contains(t, expr, "id >= 10")
	assert.Contains(t, expr, "initialPriceCents <= 50000")
	assert.Contains(t, expr, `contracted = "Acme"`)
}

func TestSortExpressionAddsSecondaryIDForDateFields(t *testing.T) {
	expr := sortExpression(models.Sort{Field: models.SortByPublicationDate, Direction: models.Descending})
	assert.Equal(t, []string{"publicationDate:desc", "id:desc"}, expr)

	expr = sortExpression(models.Sort{Field: models.SortByID, Direction: models.Ascending})
	assert.Equal(t, []string{"id:asc"}, expr)
}

func TestSortExpressionMapsPriceField(t *testing.T) {
	expr := sortExpression(models.Sort{Field: models.SortByPrice, Direction: models.Ascending})
	assert.Equal(t, []string{"initialPriceCents:asc"}, expr)
}

func TestHitToSearchedContractDecodesKnownFields(t *testing.T) {
	hit := map[string]any{
		"id":                float64(42),
		"procedureType":     "Ajuste direto",
		"initialPriceCents": float64(123456),
		"publicationDate":   time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC).Format(time.RFC3339),
		"contracting":       []any{"Câmara Municipal"},
		"_matchesPosition": map[string]any{
			"procedureType": []any{
				map[string]any{"start": float64(0), "length": float64(7)},
			},
		},
	}

	sc, err := hitToSearchedContract(hit)
	assert.NoError(t, err)
	assert.Equal(t, int64(42), sc.ID)
	assert.Equal(t, int64(123456), sc.InitialPriceCents)
	assert.Equal(t, []string{"Câmara Municipal"}, sc.Contracting)
	assert.Equal(t, []models.MatchRange{{Start: 0, End: 7}}, sc.MatchingRanges["procedureType"])
}
