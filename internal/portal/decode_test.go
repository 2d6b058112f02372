package portal

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCentsRoundTrip(t *testing.T) {
	v, err := parseCents("5.611,10 €")
	require.NoError(t, err)
	assert.Equal(t, int64(561110), v)

	v, err = parseCents("-5,00 €")
	require.NoError(t, err)
	assert.Equal(t, int64(-500), v)
}

func TestPortalDateRoundTrip(t *testing.T) {
	var d portalDate
	require.NoError(t, json.Unmarshal([]byte(`"15-01-2023"`), &d))
	assert.Equal(t, 2023, d.Year())
	assert.Equal(t, 1, int(d.Month()))
	assert.Equal(t, 15, d.Day())
}

func TestExecutionDeadlineDecode(t *testing.T) {
	var e executionDeadline
	require.NoError(t, json.Unmarshal([]byte(`"90 dias"`), &e))
	assert.Equal(t, 90, int(e))
}

func TestAnnouncementIDNegativeMeansAbsent(t *testing.T) {
	var a announcementID
	require.NoError(t, json.Unmarshal([]byte(`-1`), &a))
	assert.Nil(t, a.Value)

	require.NoError(t, json.Unmarshal([]byte(`42`), &a))
	require.NotNil(t, a.Value)
	assert.Equal(t, int64(42), *a.Value)
}

func TestDecodeCPVsPairwiseSplit(t *testing.T) {
	pairs, err := decodeCPVs("A | B", "X | Y")
	require.NoError(t, err)
	require.Equal(t, []cpvPair{{Code: "A", Designation: "X"}, {Code: "B", Designation: "Y"}}, pairs)
}

func TestDecodeCPVsBothEmpty(t *testing.T) {
	pairs, err := decodeCPVs("", "")
	require.NoError(t, err)
	assert.Empty(t, pairs)
}

func TestDecodeCPVsMismatchedLengthsIsError(t *testing.T) {
	_, err := decodeCPVs("A | B", "X")
	assert.Error(t, err)
}

func TestWireInviteeAcceptsBareIDOrFullObject(t *testing.T) {
	var bare wireInvitee
	require.NoError(t, json.Unmarshal([]byte(`123`), &bare))
	assert.Equal(t, int64(123), bare.ID)

	var full wireInvitee
	require.NoError(t, json.Unmarshal([]byte(`{"id":5,"nif":"123456789","description":"Acme"}`), &full))
	assert.Equal(t, int64(5), full.ID)
	assert.Equal(t, "Acme", full.Description)
}
