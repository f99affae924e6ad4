package vector

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/hyperjump/copilot/internal/embedding"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

const (
	payloadID       = "_id"
	payloadDocument = "_document"
	upsertBatchSize = 100
)

// QdrantService stores collections in a Qdrant server over gRPC.
// Documents are embedded locally; Qdrant holds vectors plus metadata payloads.
type QdrantService struct {
	conn        *grpc.ClientConn
	collections qdrant.CollectionsClient
	points      qdrant.PointsClient
	embedder    embedding.Embedder
	logger      *zap.Logger
}

// NewQdrantService connects to the Qdrant gRPC endpoint at host:port.
func NewQdrantService(host string, port int, embedder embedding.Embedder, logger *zap.Logger) (*QdrantService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	addr := fmt.Sprintf("%s:%d", host, port)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("connect to qdrant at %s: %w", addr, err)
	}
	logger.Debug("qdrant client created", zap.String("addr", addr))
	return &QdrantService{
		conn:        conn,
		collections: qdrant.NewCollectionsClient(conn),
		points:      qdrant.NewPointsClient(conn),
		embedder:    embedder,
		logger:      logger,
	}, nil
}

// CreateCollection creates a cosine-distance collection sized to the embedder.
func (s *QdrantService) CreateCollection(ctx context.Context, name string) (Collection, error) {
	if exists, err := s.exists(ctx, name); err != nil {
		return nil, err
	} else if exists {
		return nil, fmt.Errorf("%w: %s", ErrCollectionExists, name)
	}
	_, err := s.collections.Create(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: &qdrant.VectorsConfig{
			Config: &qdrant.VectorsConfig_Params{
				Params: &qdrant.VectorParams{
					Size:     uint64(s.embedder.Dimensions()),
					Distance: qdrant.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create qdrant collection: %w", err)
	}
	return &qdrantCollection{name: name, svc: s}, nil
}

// GetCollection returns the named collection or ErrCollectionNotFound.
func (s *QdrantService) GetCollection(ctx context.Context, name string) (Collection, error) {
	exists, err := s.exists(ctx, name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	return &qdrantCollection{name: name, svc: s}, nil
}

// DeleteCollection drops the named collection.
func (s *QdrantService) DeleteCollection(ctx context.Context, name string) error {
	resp, err := s.collections.Delete(ctx, &qdrant.DeleteCollection{CollectionName: name})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
		}
		return fmt.Errorf("delete qdrant collection: %w", err)
	}
	if !resp.GetResult() {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	return nil
}

// Close closes the gRPC connection.
func (s *QdrantService) Close() error {
	return s.conn.Close()
}

func (s *QdrantService) exists(ctx context.Context, name string) (bool, error) {
	resp, err := s.collections.List(ctx, &qdrant.ListCollectionsRequest{})
	if err != nil {
		return false, fmt.Errorf("list qdrant collections: %w", err)
	}
	for _, c := range resp.GetCollections() {
		if c.GetName() == name {
			return true, nil
		}
	}
	return false, nil
}

type qdrantCollection struct {
	name string
	svc  *QdrantService
}

func (c *qdrantCollection) Name() string {
	return c.name
}

func (c *qdrantCollection) Add(ctx context.Context, ids []string, documents []string, metadatas []map[string]string) error {
	if err := checkParallel(ids, documents, metadatas); err != nil {
		return err
	}
	vectors, err := c.svc.embedder.EmbedBatch(ctx, documents)
	if err != nil {
		return fmt.Errorf("embed documents: %w", err)
	}
	wait := true
	batch := make([]*qdrant.PointStruct, 0, upsertBatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		_, err := c.svc.points.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: c.name,
			Wait:           &wait,
			Points:         batch,
		})
		if err != nil {
			return fmt.Errorf("upsert qdrant points: %w", err)
		}
		c.svc.logger.Debug("qdrant points upserted", zap.String("collection", c.name), zap.Int("count", len(batch)))
		batch = batch[:0]
		return nil
	}
	for i, id := range ids {
		batch = append(batch, &qdrant.PointStruct{
			Id: PointID(id, metadatas[i]),
			Vectors: &qdrant.Vectors{
				VectorsOptions: &qdrant.Vectors_Vector{
					Vector: &qdrant.Vector{Data: vectors[i]},
				},
			},
			Payload: toPayload(id, documents[i], metadatas[i]),
		})
		if len(batch) >= upsertBatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}

func (c *qdrantCollection) Query(ctx context.Context, text string, k int) ([]QueryResult, error) {
	if k <= 0 {
		return nil, nil
	}
	vec, err := c.svc.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	resp, err := c.svc.points.Search(ctx, &qdrant.SearchPoints{
		CollectionName: c.name,
		Vector:         vec,
		Limit:          uint64(k),
		WithPayload: &qdrant.WithPayloadSelector{
			SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("search qdrant: %w", err)
	}
	out := make([]QueryResult, 0, len(resp.GetResult()))
	for _, p := range resp.GetResult() {
		r := fromPayload(p.GetPayload())
		r.Distance = 1 - float64(p.GetScore())
		out = append(out, r)
	}
	return out, nil
}

func (c *qdrantCollection) Count(ctx context.Context) (int, error) {
	exact := true
	resp, err := c.svc.points.Count(ctx, &qdrant.CountPoints{CollectionName: c.name, Exact: &exact})
	if err != nil {
		return 0, fmt.Errorf("count qdrant points: %w", err)
	}
	return int(resp.GetResult().GetCount()), nil
}

// PointID maps a document to a Qdrant point id. Catalog documents carry a
// numeric tech_id which is used directly; anything else gets a stable UUID.
func PointID(id string, metadata map[string]string) *qdrant.PointId {
	if n, err := strconv.ParseUint(metadata["tech_id"], 10, 64); err == nil {
		return &qdrant.PointId{PointIdOptions: &qdrant.PointId_Num{Num: n}}
	}
	return &qdrant.PointId{PointIdOptions: &qdrant.PointId_Uuid{
		Uuid: uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)).String(),
	}}
}

func toPayload(id, document string, metadata map[string]string) map[string]*qdrant.Value {
	payload := make(map[string]*qdrant.Value, len(metadata)+2)
	for k, v := range metadata {
		payload[k] = &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: v}}
	}
	payload[payloadID] = &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: id}}
	payload[payloadDocument] = &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: document}}
	return payload
}

func fromPayload(payload map[string]*qdrant.Value) QueryResult {
	r := QueryResult{Metadata: make(map[string]string, len(payload))}
	for k, v := range payload {
		switch k {
		case payloadID:
			r.ID = v.GetStringValue()
		case payloadDocument:
			r.Document = v.GetStringValue()
		default:
			r.Metadata[k] = v.GetStringValue()
		}
	}
	return r
}
