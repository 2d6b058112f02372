package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chicoferreira/contratopublico-go/internal/models"
)

func TestFilterEmptyCPVDropsContractsWithNoCPVCodes(t *testing.T) {
	docs := []models.SearchProjection{
		{ID: 1, CPVCodes: []string{"45000000-7"}},
		{ID: 2, CPVCodes: nil},
		{ID: 3, CPVCodes: []string{}},
		{ID: 4, CPVCodes: []string{"72000000-5", "79000000-4"}},
	}

	got := filterEmptyCPV(docs)

	require.Len(t, got, 2)
	require.Equal(t, int64(1), got[0].ID)
	require.Equal(t, int64(4), got[1].ID)
}

func TestFilterEmptyCPVEmptyInput(t *testing.T) {
	require.Empty(t, filterEmptyCPV(nil))
}
