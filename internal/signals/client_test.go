package signals

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/thUser005/project-stocks-profits/internal/errors"
)

func TestFetchReturnsSignals(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/signals", r.URL.Path)
		assert.Equal(t, "2025-06-18", r.URL.Query().Get("date"))

		w.Write([]byte(`{"found":true,"data":[
			{"symbol":"RELIANCE","open":96,"entry":100,"target":105,"stoploss":99,"quantity":10},
			{"symbol":"TCS","open":3000,"entry":3050,"target":3100,"stoploss":3020,"quantity":2}
		]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 0, zerolog.Nop())
	list, err := client.Fetch(context.Background(), "2025-06-18")
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, "RELIANCE", list[0].Symbol)
	assert.Equal(t, 100.0, list[0].Entry)
	assert.Equal(t, 105.0, list[0].Target)
	assert.Equal(t, 99.0, list[0].Stoploss)
	assert.Equal(t, 10, list[0].Quantity)
}

func TestFetchNotFoundIsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, 0, zerolog.Nop())
	list, err := client.Fetch(context.Background(), "2025-06-18")
	require.NoError(t, err)
	assert.Nil(t, list)
}

func TestFetchFoundFalseIsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"found":false,"data":null}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 0, zerolog.Nop())
	list, err := client.Fetch(context.Background(), "2025-06-18")
	require.NoError(t, err)
	assert.Nil(t, list)
}

func TestFetchServerErrorIsAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL, 0, zerolog.Nop())
	_, err := client.Fetch(context.Background(), "2025-06-18")
	require.Error(t, err)

	var apiErr *apperrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "signals", apiErr.Service)
}

func TestFetchDefaultsToToday(t *testing.T) {
	var gotDate string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotDate = r.URL.Query().Get("date")
		w.Write([]byte(`{"found":false}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 0, zerolog.Nop())
	_, err := client.Fetch(context.Background(), "")
	require.NoError(t, err)
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2}$`, gotDate)
}
