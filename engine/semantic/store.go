// Package semantic stores completed-repair summaries as vectors in Qdrant
// and answers "what did similar past repairs look like" queries.
package semantic

import (
	"context"
	"fmt"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/zester4/fixium/engine/domain"
)

// VectorStore is the sole owner of all Qdrant operations.
type VectorStore struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
}

// New creates a VectorStore connected to Qdrant at the given gRPC address.
func New(addr string, collection string) (*VectorStore, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("semantic: dial qdrant %s: %w", addr, err)
	}
	return &VectorStore{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
	}, nil
}

// Close closes the underlying gRPC connection.
func (v *VectorStore) Close() error {
	return v.conn.Close()
}

// EnsureCollection creates the collection if it doesn't exist.
func (v *VectorStore) EnsureCollection(ctx context.Context, dims int) error {
	list, err := v.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("semantic: list collections: %w", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == v.collection {
			return nil
		}
	}

	_, err = v.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: v.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(dims),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("semantic: create collection %s: %w", v.collection, err)
	}
	return nil
}

// Upsert stores guide records. Called by the ingest pipeline.
func (v *VectorStore) Upsert(ctx context.Context, records []GuideRecord) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]*pb.PointStruct, len(records))
	for i, r := range records {
		points[i] = &pb.PointStruct{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Uuid{Uuid: r.ID},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: r.Embedding},
				},
			},
			Payload: guidePayload(r),
		}
	}

	wait := true
	_, err := v.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: v.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("semantic: upsert %d points: %w", len(records), err)
	}
	return nil
}

// DeleteGuide removes a guide's point. Used when a history entry is deleted.
func (v *VectorStore) DeleteGuide(ctx context.Context, guideID string) error {
	wait := true
	_, err := v.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: v.collection,
		Wait:           &wait,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Points{
				Points: &pb.PointsIdsList{
					Ids: []*pb.PointId{{PointIdOptions: &pb.PointId_Uuid{Uuid: guideID}}},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("semantic: delete guide %s: %w", guideID, err)
	}
	return nil
}

// Search performs k-NN similarity search over guide summaries, optionally
// restricted to one device category.
func (v *VectorStore) Search(ctx context.Context, embedding []float32, topK int, category domain.DeviceCategory) ([]GuideHit, error) {
	req := &pb.SearchPoints{
		CollectionName: v.collection,
		Vector:         embedding,
		Limit:          uint64(topK),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	}
	if category != "" {
		req.Filter = &pb.Filter{Must: []*pb.Condition{fieldMatch("category", string(category))}}
	}

	resp, err := v.points.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("semantic: search: %w", err)
	}

	hits := make([]GuideHit, len(resp.GetResult()))
	for i, r := range resp.GetResult() {
		hit := GuideHit{
			ID:    r.GetId().GetUuid(),
			Score: r.GetScore(),
		}
		for k, val := range r.GetPayload() {
			switch k {
			case "summary":
				hit.Summary = val.GetStringValue()
			case "category":
				hit.Category = val.GetStringValue()
			case "model":
				hit.Model = val.GetStringValue()
			}
		}
		hits[i] = hit
	}
	return hits, nil
}

func guidePayload(r GuideRecord) map[string]*pb.Value {
	return map[string]*pb.Value{
		"summary":    {Kind: &pb.Value_StringValue{StringValue: r.Summary}},
		"category":   {Kind: &pb.Value_StringValue{StringValue: r.Category}},
		"model":      {Kind: &pb.Value_StringValue{StringValue: r.Model}},
		"steps":      {Kind: &pb.Value_IntegerValue{IntegerValue: int64(r.Steps)}},
		"created_at": {Kind: &pb.Value_IntegerValue{IntegerValue: r.CreatedAt}},
	}
}

func fieldMatch(key, value string) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key: key,
				Match: &pb.Match{
					MatchValue: &pb.Match_Keyword{Keyword: value},
				},
			},
		},
	}
}
