package portal

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortWireString(t *testing.T) {
	assert.Equal(t, "+id", Sort{Field: SortID, Order: Ascending}.wireString())
	assert.Equal(t, "-publicationDate", Sort{Field: SortPublicationDate, Order: Descending}.wireString())
}

func TestFetchPageDecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "search_contratos", r.Form.Get("type"))
		assert.Equal(t, "+id", r.Form.Get("sort"))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"total":100,"items":[{"id":1},{"id":2}]}`)
	}))
	defer srv.Close()

	c := NewClient()
	c.http = srv.Client()
	// searchURL is a package constant, so redirect via a RoundTripper
	// that rewrites the request host to the test server instead.
	c.http.Transport = rewriteHostTransport{target: srv.URL}

	result, err := c.FetchPage(context.Background(), Sort{Field: SortID, Order: Ascending}, 0, 50)
	require.NoError(t, err)
	assert.Equal(t, int64(100), result.Total)
	assert.Equal(t, []int64{1, 2}, result.IDs)
}

type rewriteHostTransport struct {
	target string
}

func (rt rewriteHostTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	target, err := url.Parse(rt.target)
	if err != nil {
		return nil, err
	}
	req = req.Clone(req.Context())
	req.URL.Scheme = target.Scheme
	req.URL.Host = target.Host
	return http.DefaultTransport.RoundTrip(req)
}

func TestFetchDetailDecodesFields(t *testing.T) {
	body := `{
		"id": 7,
		"objectBriefDescription": "Serviço de limpeza",
		"contractingProcedureType": "Ajuste direto",
		"contracting": [{"id": 1, "nif": "500000000", "description": "Câmara"}],
		"contracted": [{"id": 2, "nif": "500000001", "description": "Empresa"}],
		"contestants": [],
		"invitees": [3],
		"documents": [],
		"cpvs": "A | B",
		"cpvsDesignation": "X | Y",
		"signingDate": null,
		"publicationDate": "15-01-2023",
		"initialContractualPrice": "5.611,10 €",
		"regime": "Geral",
		"executionDeadline": "90 dias",
		"contractFundamentationType": "",
		"announcementId": -1,
		"directAwardFundamentationType": "",
		"observations": null,
		"ccp": true,
		"closeDate": null,
		"totalEffectivePrice": null
	}`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, body)
	}))
	defer srv.Close()

	c := NewClient()
	c.http = srv.Client()
	c.http.Transport = rewriteHostTransport{target: srv.URL}

	contract, err := c.FetchDetail(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), contract.ID)
	assert.Equal(t, int64(561110), contract.InitialPriceCents)
	assert.Equal(t, 2023, contract.PublicationDate.Year())
	assert.Equal(t, 90, *contract.ExecutionDeadline)
	assert.Nil(t, contract.AnnouncementID)
	assert.True(t, contract.CCP)
	require.Len(t, contract.CPVs, 2)
	assert.Equal(t, "A", contract.CPVs[0].Code)
	require.Len(t, contract.Invitees, 1)
}
