package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailbot/internal/domain"
)

func TestStorage_RoundTripAgainstFakeServer(t *testing.T) {
	var (
		created  bool
		upserted []map[string]any
	)
	mux := http.NewServeMux()
	mux.HandleFunc("/collections/docs", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("api-key"))
		switch r.Method {
		case http.MethodGet:
			if !created {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			_, _ = w.Write([]byte(`{"result":{"points_count":1}}`))
		case http.MethodPut:
			created = true
			_, _ = w.Write([]byte(`{"result":true}`))
		case http.MethodDelete:
			created = false
			_, _ = w.Write([]byte(`{"result":true}`))
		}
	})
	mux.HandleFunc("/collections/docs/points", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Points []map[string]any `json:"points"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		upserted = body.Points
		_, _ = w.Write([]byte(`{"result":{"status":"completed"}}`))
	})
	mux.HandleFunc("/collections/docs/points/search", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":[{"score":0.9,"payload":{
			"document_id":"horarios","chunk_id":"horarios:0","index":"0","total":"1",
			"content_type":"horarios","keywords":"horarios,dias","specificity":"0.6","text":"Lunes a viernes"}}]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx := context.Background()
	s := NewStorage(Config{URL: srv.URL, APIKey: "secret", Collection: "docs"})

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, s.Init(ctx, 2))
	assert.True(t, created)

	chunk := domain.Chunk{DocumentID: "horarios", ChunkID: "horarios:0", Text: "Lunes a viernes", Total: 1}
	require.NoError(t, s.Upsert(ctx, []domain.Chunk{chunk}, [][]float32{{1, 0}}))
	require.Len(t, upserted, 1)
	assert.Equal(t, pointID("horarios:0"), upserted[0]["id"])
	assert.Len(t, upserted[0]["id"], 36)

	n, err = s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	results, err := s.Search(ctx, []float32{1, 0}, 4)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "horarios:0", results[0].Chunk.ChunkID)
	assert.Equal(t, "Lunes a viernes", results[0].Chunk.Text)
	assert.Equal(t, []string{"horarios", "dias"}, results[0].Chunk.Keywords)
	assert.InDelta(t, 0.9, results[0].Score, 1e-9)

	require.NoError(t, s.Clear(ctx))
	require.NoError(t, s.Clear(ctx), "clearing a missing collection is not an error")
}
