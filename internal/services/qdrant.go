package services

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
)

type qdrantIndex struct {
	client         *qdrant.Client
	collectionName string
	vectorSize     uint64
	log            *zap.Logger
}

// NewQdrantIndex connects to Qdrant over gRPC. The port in urlStr is used
// as is; without one the gRPC default 6334 applies.
func NewQdrantIndex(urlStr, apiKey, collectionName string, vectorSize uint64, log *zap.Logger) (VectorIndex, error) {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsed.Hostname()
	useTLS := parsed.Scheme == "https"

	port := 6334
	if p := parsed.Port(); p != "" {
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &qdrantIndex{
		client:         client,
		collectionName: collectionName,
		vectorSize:     vectorSize,
		log:            log,
	}, nil
}

// Init implements VectorIndex.
func (q *qdrantIndex) Init(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}

	if exists {
		q.log.Info("✅ Qdrant collection already exists", zap.String("collection", q.collectionName))
		return nil
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     q.vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	q.log.Info("✅ Qdrant collection created", zap.String("collection", q.collectionName))
	return nil
}

// Upsert implements VectorIndex.
func (q *qdrantIndex) Upsert(ctx context.Context, runID string, items []IndexedVector) error {
	points := make([]*qdrant.PointStruct, len(items))
	for i, item := range items {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(uuid.NewString()),
			Vectors: qdrant.NewVectors(item.Vector...),
			Payload: qdrant.NewValueMap(map[string]any{
				"run_id":   runID,
				"position": item.Position,
				"filename": item.Filename,
			}),
		}
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collectionName,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}
	return nil
}

// Search implements VectorIndex.
func (q *qdrantIndex) Search(ctx context.Context, runID string, query []float32, limit int) ([]VectorMatch, error) {
	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collectionName,
		Query:          qdrant.NewQuery(query...),
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("run_id", runID),
			},
		},
		Limit:       qdrant.PtrOf(uint64(limit)),
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	matches := make([]VectorMatch, 0, len(points))
	for _, point := range points {
		m := VectorMatch{Score: clampUnit(float64(point.Score)), Position: -1}

		if v, ok := point.Payload["filename"]; ok {
			if val, ok := v.GetKind().(*qdrant.Value_StringValue); ok {
				m.Filename = val.StringValue
			}
		}
		if v, ok := point.Payload["position"]; ok {
			if val, ok := v.GetKind().(*qdrant.Value_IntegerValue); ok {
				m.Position = int(val.IntegerValue)
			}
		}

		matches = append(matches, m)
	}
	return matches, nil
}

// DeleteRun implements VectorIndex.
func (q *qdrantIndex) DeleteRun(ctx context.Context, runID string) error {
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collectionName,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: &qdrant.Filter{
					Must: []*qdrant.Condition{
						qdrant.NewMatch("run_id", runID),
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete run points: %w", err)
	}
	return nil
}

func (q *qdrantIndex) Close() error {
	return q.client.Close()
}
