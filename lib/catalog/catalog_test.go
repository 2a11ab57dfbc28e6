package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

const speciesJson = `{
	"count": 3,
	"results": [
		{"name": "bulbasaur", "url": "https://pokeapi.co/api/v2/pokemon-species/1/"},
		{"name": "ivysaur", "url": "https://pokeapi.co/api/v2/pokemon-species/2/"},
		{"name": "venusaur", "url": "https://pokeapi.co/api/v2/pokemon-species/3/"}
	]
}`

const dexPage = `<html><body>
<table class="vitals-table">
<tbody>
<tr><th>Species</th><td>Seed Pokémon</td></tr>
<tr><th>Catch rate</th><td>45 <small>(5.9% with PokéBall, full HP)</small></td></tr>
</tbody>
</table>
</body></html>`

func TestListSpecies(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v2/pokemon-species", r.URL.Path)
		require.Equal(t, "3", r.URL.Query().Get("limit"))
		w.Header().Set("content-type", "application/json")
		_, _ = w.Write([]byte(speciesJson))
	}))
	defer server.Close()

	client := NewClient(ClientOptions{ApiBaseUrl: server.URL})
	species, err := client.ListSpecies(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, species, 3)
	require.Equal(t, "bulbasaur", species[0].Name)
	require.Equal(t, "venusaur", species[2].Name)
}

func TestCatchRate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/pokedex/bulbasaur", r.URL.Path)
		_, _ = w.Write([]byte(dexPage))
	}))
	defer server.Close()

	client := NewClient(ClientOptions{DexBaseUrl: server.URL})
	rate, err := client.CatchRate(context.Background(), "bulbasaur")
	require.NoError(t, err)
	require.Equal(t, 45, rate)
}

func TestCatchRateMissingRow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body><p>nothing here</p></body></html>"))
	}))
	defer server.Close()

	client := NewClient(ClientOptions{DexBaseUrl: server.URL})
	_, err := client.CatchRate(context.Background(), "missingno")
	require.Error(t, err)
}
