package export

import (
	"strings"
	"testing"
	"time"

	"pogorarity-backend/services/selection"

	"github.com/stretchr/testify/require"
)

func TestWriteCSV(t *testing.T) {
	at := time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC)
	snapshot := selection.Snapshot{
		"pikachu":   {Caught: true, Favorite: true, UpdatedAt: at},
		"bulbasaur": {Caught: true, UpdatedAt: at},
		"mewtwo":    {Favorite: true, UpdatedAt: at},
	}

	var buf strings.Builder
	require.NoError(t, WriteCSV(&buf, snapshot))

	want := "entity_id,caught,favorite,updated_at\n" +
		"bulbasaur,true,false,2024-06-01T12:30:00Z\n" +
		"mewtwo,false,true,2024-06-01T12:30:00Z\n" +
		"pikachu,true,true,2024-06-01T12:30:00Z\n"
	require.Equal(t, want, buf.String())
}

func TestRenderTable(t *testing.T) {
	at := time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC)
	snapshot := selection.Snapshot{
		"eevee": {Caught: true, UpdatedAt: at},
	}

	var buf strings.Builder
	RenderTable(&buf, snapshot, 7)

	out := buf.String()
	require.Contains(t, out, "eevee")
	require.Contains(t, out, "2024-06-01 12:30:00")
	require.Contains(t, out, "7")
}
