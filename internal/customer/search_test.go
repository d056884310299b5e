// File: internal/customer/search_test.go
package customer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"wasa_admin_backend/internal/config"
	es "wasa_admin_backend/internal/platform/elasticsearch"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newFakeES(t *testing.T, handler http.HandlerFunc) Indexer {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return NewIndexer(&es.ESClientWrapper{Client: client}, &config.Config{CustomerIndexName: "customers"}, zap.NewNop())
}

func TestNewIndexer_NilClient(t *testing.T) {
	assert.Nil(t, NewIndexer(nil, &config.Config{}, zap.NewNop()))
}

func TestESIndexer_Search(t *testing.T) {
	hit := uuid.New()
	indexer := newFakeES(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/customers/_search", r.URL.Path)
		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.EqualValues(t, 20, body["from"])
		mm := body["query"].(map[string]interface{})["multi_match"].(map[string]interface{})
		assert.Equal(t, "rahim", mm["query"])
		_, _ = w.Write([]byte(`{"hits":{"total":{"value":7},"hits":[{"_id":"` + hit.String() + `"},{"_id":"not-a-uuid"}]}}`))
	})

	ids, total, err := indexer.Search(context.Background(), "rahim", 20, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(7), total)
	assert.Equal(t, []uuid.UUID{hit}, ids)
}

func TestESIndexer_SearchError(t *testing.T) {
	indexer := newFakeES(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"bad query"}`))
	})
	_, _, err := indexer.Search(context.Background(), "x", 0, 10)
	assert.Error(t, err)
}

func TestESIndexer_IndexAndDelete(t *testing.T) {
	c := Customer{InspectionCode: "INSP-1", FullName: "Rahim", Status: StatusActive}
	c.ID = uuid.New()

	indexer := newFakeES(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/_bulk":
			_, _ = w.Write([]byte(`{"errors":false,"items":[{"index":{"_id":"` + c.ID.String() + `","status":201}}]}`))
		case r.Method == http.MethodDelete:
			assert.Equal(t, "/customers/_doc/"+c.ID.String(), r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"result":"not_found"}`))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	})

	res, err := indexer.Index(context.Background(), []Customer{c})
	require.NoError(t, err)
	assert.Equal(t, ReindexResult{Indexed: 1}, res)

	assert.NoError(t, indexer.Delete(context.Background(), c.ID))
}
