// File: internal/platform/elasticsearch/index.go
package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"
)

// EnsureIndex creates the index with the given mapping if it does not already exist.
func EnsureIndex(ctx context.Context, client *ESClientWrapper, index string, mapping map[string]interface{}, logger *zap.Logger) error {
	log := logger.Named("elasticsearch_index_setup")

	res, err := esapi.IndicesExistsRequest{Index: []string{index}}.Do(ctx, client.Client)
	if err != nil {
		log.Error("Error checking if index exists", zap.Error(err), zap.String("index_name", index))
		return fmt.Errorf("error checking if index %s exists: %w", index, err)
	}
	res.Body.Close()

	if res.StatusCode == http.StatusOK {
		log.Info("Index already exists", zap.String("index_name", index))
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		log.Error("Unexpected status checking index", zap.String("status", res.Status()), zap.String("index_name", index))
		return fmt.Errorf("error checking if index %s exists: status %s", index, res.Status())
	}

	mappingBytes, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("error marshalling mapping for %s: %w", index, err)
	}

	createRes, err := esapi.IndicesCreateRequest{
		Index: index,
		Body:  bytes.NewReader(mappingBytes),
	}.Do(ctx, client.Client)
	if err != nil {
		log.Error("Error creating index", zap.Error(err), zap.String("index_name", index))
		return fmt.Errorf("error creating index %s: %w", index, err)
	}
	defer createRes.Body.Close()

	if createRes.IsError() {
		log.Error("Failed to create index",
			zap.String("status", createRes.Status()),
			zap.Any("error_details", decodeError(createRes)),
			zap.String("index_name", index),
		)
		return fmt.Errorf("failed to create index %s: status %s", index, createRes.Status())
	}

	log.Info("Index created successfully", zap.String("index_name", index))
	return nil
}

// BulkDocument is one document for BulkIndex.
type BulkDocument struct {
	ID   string
	Body interface{}
}

// BulkResult counts indexed and failed documents of one bulk request.
type BulkResult struct {
	Indexed int
	Failed  int
}

// BulkIndex sends the documents in a single _bulk request and inspects the
// item-level results, which can fail even when the request succeeds.
func BulkIndex(ctx context.Context, client *ESClientWrapper, index string, docs []BulkDocument, refresh string, logger *zap.Logger) (BulkResult, error) {
	var result BulkResult
	if len(docs) == 0 {
		return result, nil
	}

	var body strings.Builder
	for _, d := range docs {
		docJSON, err := json.Marshal(d.Body)
		if err != nil {
			logger.Error("Failed to encode document", zap.String("id", d.ID), zap.Error(err))
			result.Failed++
			continue
		}
		fmt.Fprintf(&body, `{ "index" : { "_index" : %q, "_id" : %q } }`+"\n", index, d.ID)
		body.Write(docJSON)
		body.WriteString("\n")
	}
	if body.Len() == 0 {
		return result, nil
	}

	res, err := esapi.BulkRequest{Body: strings.NewReader(body.String()), Refresh: refresh}.Do(ctx, client.Client)
	if err != nil {
		result.Failed = len(docs)
		return result, fmt.Errorf("bulk request: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		result.Failed = len(docs)
		return result, fmt.Errorf("bulk request failed: %s", res.Status())
	}

	var bulkResponse struct {
		Errors bool `json:"errors"`
		Items  []struct {
			Index struct {
				ID     string                 `json:"_id"`
				Status int                    `json:"status"`
				Error  map[string]interface{} `json:"error,omitempty"`
			} `json:"index"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&bulkResponse); err != nil {
		result.Failed = len(docs)
		return result, fmt.Errorf("decode bulk response: %w", err)
	}
	for _, item := range bulkResponse.Items {
		if item.Index.Error != nil {
			logger.Error("Failed to index document in bulk batch",
				zap.String("id", item.Index.ID),
				zap.Any("error", item.Index.Error),
				zap.Int("status", item.Index.Status),
			)
			result.Failed++
			continue
		}
		result.Indexed++
	}
	return result, nil
}
