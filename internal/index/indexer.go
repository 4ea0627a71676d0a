package index

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	es "github.com/elastic/go-elasticsearch/v8"

	"github.com/K11E3R/moroccan-education-API/internal/domain"
	"github.com/K11E3R/moroccan-education-API/internal/logger"
)

// ErrBulkItems is returned when some documents of a bulk request failed.
var ErrBulkItems = errors.New("elasticsearch: bulk items failed")

// Result counts indexed documents.
type Result struct {
	Indexed int
	Failed  int
}

// Indexer writes levels, subjects and content into one index each:
// <prefix>_levels, <prefix>_subjects and <prefix>_content.
type Indexer struct {
	client   *es.Client
	prefix   string
	bulkSize int
	logger   logger.Interface
}

// NewIndexer creates an indexer.
func NewIndexer(client *es.Client, cfg Config, log logger.Interface) *Indexer {
	cfg.SetDefaults()
	if log == nil {
		log = logger.NewNoOp()
	}
	return &Indexer{
		client:   client,
		prefix:   cfg.IndexPrefix,
		bulkSize: cfg.BulkSize,
		logger:   log.WithComponent("es_indexer"),
	}
}

// IndexNames returns the level, subject and content index names.
func (ix *Indexer) IndexNames() (levels, subjects, content string) {
	return ix.prefix + "_levels", ix.prefix + "_subjects", ix.prefix + "_content"
}

// document is one bulk action.
type document struct {
	id   string
	body any
}

// Write implements storage.Sink.
func (ix *Indexer) Write(ctx context.Context, run *domain.CollectionRun) error {
	_, err := ix.Index(ctx, run)
	return err
}

// Index ensures the indices exist and bulk-indexes every record of run,
// keyed by record id.
func (ix *Indexer) Index(ctx context.Context, run *domain.CollectionRun) (Result, error) {
	if run == nil {
		return Result{}, errors.New("elasticsearch: nil collection run")
	}
	if err := ix.EnsureIndices(ctx); err != nil {
		return Result{}, err
	}

	levelsIdx, subjectsIdx, contentIdx := ix.IndexNames()
	batches := []struct {
		index string
		docs  []document
	}{
		{levelsIdx, docsOf(run.Levels)},
		{subjectsIdx, docsOf(run.Subjects)},
		{contentIdx, docsOf(run.Content)},
	}

	var total Result
	for _, b := range batches {
		for start := 0; start < len(b.docs); start += ix.bulkSize {
			end := min(start+ix.bulkSize, len(b.docs))
			res, err := ix.bulk(ctx, b.index, b.docs[start:end])
			total.Indexed += res.Indexed
			total.Failed += res.Failed
			if err != nil && !errors.Is(err, ErrBulkItems) {
				return total, err
			}
		}
	}

	ix.logger.Info("Dataset indexed",
		"run_id", run.RunID,
		"indexed", total.Indexed,
		"failed", total.Failed,
	)
	if total.Failed > 0 {
		return total, fmt.Errorf("%w: %d of %d", ErrBulkItems, total.Failed, total.Indexed+total.Failed)
	}
	return total, nil
}

func docsOf[T domain.Record](records []T) []document {
	docs := make([]document, 0, len(records))
	for _, r := range records {
		docs = append(docs, document{id: r.RecordID(), body: r})
	}
	return docs
}

// EnsureIndices creates any missing index with its mapping.
func (ix *Indexer) EnsureIndices(ctx context.Context) error {
	levelsIdx, subjectsIdx, contentIdx := ix.IndexNames()
	for name, m := range map[string]map[string]any{
		levelsIdx:   levelMapping,
		subjectsIdx: subjectMapping,
		contentIdx:  contentMapping,
	} {
		if err := ix.ensureIndex(ctx, name, m); err != nil {
			return err
		}
	}
	return nil
}

func (ix *Indexer) ensureIndex(ctx context.Context, name string, m map[string]any) error {
	res, err := ix.client.Indices.Exists([]string{name}, ix.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to check index %s: %w", name, err)
	}
	res.Body.Close()

	switch {
	case res.StatusCode == http.StatusOK:
		return nil
	case res.StatusCode != http.StatusNotFound:
		return fmt.Errorf("error checking index %s: %s", name, res.Status())
	}

	body, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal mapping: %w", err)
	}

	res, err = ix.client.Indices.Create(name,
		ix.client.Indices.Create.WithBody(bytes.NewReader(body)),
		ix.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to create index %s: %w", name, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		msg, _ := io.ReadAll(res.Body)
		return fmt.Errorf("error creating index %s: %s", name, string(msg))
	}

	ix.logger.Info("Index created", "index", name)
	return nil
}

// bulkResponse is the subset of the _bulk reply we read.
type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		ID     string `json:"_id"`
		Status int    `json:"status"`
		Error  *struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error,omitempty"`
	} `json:"items"`
}

func (ix *Indexer) bulk(ctx context.Context, index string, docs []document) (Result, error) {
	if len(docs) == 0 {
		return Result{}, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for _, d := range docs {
		meta := map[string]any{"index": map[string]any{"_index": index, "_id": d.id}}
		if err := enc.Encode(meta); err != nil {
			return Result{}, fmt.Errorf("failed to encode meta: %w", err)
		}
		if err := enc.Encode(d.body); err != nil {
			return Result{}, fmt.Errorf("failed to encode document %s: %w", d.id, err)
		}
	}

	res, err := ix.client.Bulk(bytes.NewReader(buf.Bytes()),
		ix.client.Bulk.WithContext(ctx),
		ix.client.Bulk.WithIndex(index),
	)
	if err != nil {
		return Result{}, fmt.Errorf("bulk request failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return Result{}, fmt.Errorf("bulk indexing error: %s", res.String())
	}

	var br bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&br); err != nil {
		return Result{}, fmt.Errorf("error decoding bulk response: %w", err)
	}

	var result Result
	for _, item := range br.Items {
		for _, op := range item {
			if op.Error != nil || op.Status >= http.StatusMultipleChoices {
				result.Failed++
				reason := ""
				if op.Error != nil {
					reason = op.Error.Type + ": " + op.Error.Reason
				}
				ix.logger.Warn("Document not indexed", "index", index, "id", op.ID, "status", op.Status, "reason", reason)
				continue
			}
			result.Indexed++
		}
	}
	if result.Failed > 0 {
		return result, ErrBulkItems
	}
	return result, nil
}
