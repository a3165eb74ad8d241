package vector

import (
	"context"
	"fmt"
	"strings"

	"github.com/qdrant/go-client/qdrant"

	"github.com/atelier-ai/atelier/pkg/config"
)

// Qdrant talks to a Qdrant server over gRPC.
type Qdrant struct {
	client *qdrant.Client
}

func NewQdrant(cfg config.VectorStoreConfig) (*Qdrant, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant at %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return &Qdrant{client: client}, nil
}

func (p *Qdrant) ensureCollection(ctx context.Context, collection string, dimension int) error {
	exists, err := p.client.CollectionExists(ctx, collection)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if exists {
		return nil
	}

	err = p.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

func (p *Qdrant) Upsert(ctx context.Context, collection string, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	if err := p.ensureCollection(ctx, collection, len(docs[0].Vector)); err != nil {
		return err
	}

	points := make([]*qdrant.PointStruct, 0, len(docs))
	for _, d := range docs {
		payload := make(map[string]*qdrant.Value, len(d.Metadata)+1)
		payload["content"] = qdrant.NewValueString(d.Content)
		for k, v := range d.Metadata {
			payload[k] = qdrant.NewValueString(v)
		}
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(d.ID),
			Vectors: qdrant.NewVectors(d.Vector...),
			Payload: payload,
		})
	}

	if _, err := p.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points:         points,
	}); err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}
	return nil
}

func (p *Qdrant) Search(ctx context.Context, collection string, vector []float32, topK int) ([]SearchResult, error) {
	limit := uint64(topK)
	points, err := p.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	out := make([]SearchResult, 0, len(points))
	for _, pt := range points {
		result := SearchResult{
			Score:    pt.Score,
			Metadata: make(map[string]string),
		}
		if uuid := pt.Id.GetUuid(); uuid != "" {
			result.ID = uuid
		} else {
			result.ID = fmt.Sprint(pt.Id.GetNum())
		}
		for k, v := range pt.Payload {
			if k == "content" {
				result.Content = v.GetStringValue()
				continue
			}
			result.Metadata[k] = v.GetStringValue()
		}
		out = append(out, result)
	}
	return out, nil
}

func (p *Qdrant) Delete(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	pointIDs := make([]*qdrant.PointId, 0, len(ids))
	for _, id := range ids {
		pointIDs = append(pointIDs, qdrant.NewID(id))
	}

	_, err := p.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Points{
				Points: &qdrant.PointsIdsList{Ids: pointIDs},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete points: %w", err)
	}
	return nil
}

func (p *Qdrant) DeleteCollection(ctx context.Context, collection string) error {
	if err := p.client.DeleteCollection(ctx, collection); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	return nil
}

func (p *Qdrant) Close() error {
	return p.client.Close()
}
