// File: internal/customer/search.go
package customer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"wasa_admin_backend/internal/config"
	es "wasa_admin_backend/internal/platform/elasticsearch"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Indexer keeps the customer search index in step with the database.
type Indexer interface {
	EnsureIndex(ctx context.Context) error
	Index(ctx context.Context, customers []Customer) (ReindexResult, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, q string, offset, limit int) ([]uuid.UUID, int64, error)
}

var customerIndexMapping = map[string]interface{}{
	"settings": map[string]interface{}{
		"number_of_shards":   1,
		"number_of_replicas": 0,
	},
	"mappings": map[string]interface{}{
		"properties": map[string]interface{}{
			"account_number":     map[string]interface{}{"type": "keyword"},
			"inspection_code":    map[string]interface{}{"type": "keyword"},
			"full_name":          map[string]interface{}{"type": "text"},
			"phone":              map[string]interface{}{"type": "keyword"},
			"email":              map[string]interface{}{"type": "keyword"},
			"address":            map[string]interface{}{"type": "text"},
			"wasa_id":            map[string]interface{}{"type": "keyword"},
			"zone_id":            map[string]interface{}{"type": "keyword"},
			"area_id":            map[string]interface{}{"type": "keyword"},
			"tariff_category_id": map[string]interface{}{"type": "keyword"},
			"connection_type":    map[string]interface{}{"type": "keyword"},
			"status":             map[string]interface{}{"type": "keyword"},
			"created_at":         map[string]interface{}{"type": "date"},
		},
	},
}

type esIndexer struct {
	client *es.ESClientWrapper
	index  string
	logger *zap.Logger
}

// NewIndexer returns an Elasticsearch backed Indexer, or nil when no client
// is configured.
func NewIndexer(client *es.ESClientWrapper, cfg *config.Config, logger *zap.Logger) Indexer {
	if client == nil {
		return nil
	}
	return &esIndexer{client: client, index: cfg.CustomerIndexName, logger: logger.Named("customer_indexer")}
}

func toDocument(c *Customer) map[string]interface{} {
	doc := map[string]interface{}{
		"account_number":     c.AccountNumber,
		"inspection_code":    c.InspectionCode,
		"full_name":          c.FullName,
		"wasa_id":            c.WasaID.String(),
		"zone_id":            c.ZoneID.String(),
		"area_id":            c.AreaID.String(),
		"tariff_category_id": c.TariffCategoryID.String(),
		"connection_type":    c.ConnectionType,
		"status":             c.Status,
		"created_at":         c.CreatedAt,
	}
	if c.Phone != nil {
		doc["phone"] = *c.Phone
	}
	if c.Email != nil {
		doc["email"] = *c.Email
	}
	if c.Address != nil {
		doc["address"] = *c.Address
	}
	return doc
}

func (i *esIndexer) EnsureIndex(ctx context.Context) error {
	return es.EnsureIndex(ctx, i.client, i.index, customerIndexMapping, i.logger)
}

func (i *esIndexer) Index(ctx context.Context, customers []Customer) (ReindexResult, error) {
	docs := make([]es.BulkDocument, len(customers))
	for n := range customers {
		docs[n] = es.BulkDocument{ID: customers[n].ID.String(), Body: toDocument(&customers[n])}
	}
	res, err := es.BulkIndex(ctx, i.client, i.index, docs, "false", i.logger)
	return ReindexResult{Indexed: res.Indexed, Failed: res.Failed}, err
}

func (i *esIndexer) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := esapi.DeleteRequest{Index: i.index, DocumentID: id.String()}.Do(ctx, i.client.Client)
	if err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("delete document %s: status %s", id, res.Status())
	}
	return nil
}

// Search runs a multi_match query and returns the matching ids by score.
func (i *esIndexer) Search(ctx context.Context, q string, offset, limit int) ([]uuid.UUID, int64, error) {
	query := map[string]interface{}{
		"from":    offset,
		"size":    limit,
		"_source": false,
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":   q,
				"fields":  []string{"inspection_code^4", "account_number^4", "full_name^3", "phone^2", "email", "address"},
				"lenient": true,
			},
		},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return nil, 0, err
	}

	res, err := esapi.SearchRequest{Index: []string{i.index}, Body: bytes.NewReader(body)}.Do(ctx, i.client.Client)
	if err != nil {
		return nil, 0, fmt.Errorf("search request: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, 0, fmt.Errorf("search request failed: %s", res.Status())
	}

	var sr struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, 0, fmt.Errorf("decode search response: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(sr.Hits.Hits))
	for _, h := range sr.Hits.Hits {
		id, err := uuid.Parse(h.ID)
		if err != nil {
			i.logger.Warn("Skipping search hit with invalid id", zap.String("id", h.ID))
			continue
		}
		ids = append(ids, id)
	}
	return ids, sr.Hits.Total.Value, nil
}
