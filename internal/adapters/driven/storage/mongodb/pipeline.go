package mongodb

import (
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Field names in the chunks collection.
const (
	fieldEmbedding  = "embedding"
	fieldContent    = "content"
	fieldDocumentID = "document_id"
	fieldMetadata   = "metadata"
	documentJoinAs  = "document_info"
)

// vectorPipeline builds the $vectorSearch aggregation.
func vectorPipeline(settings domain.MongoSettings, q driven.VectorQuery) mongo.Pipeline {
	numCandidates := max(q.NumCandidates, q.Limit)
	return append(mongo.Pipeline{
		{{Key: "$vectorSearch", Value: bson.D{
			{Key: "index", Value: settings.VectorIndex},
			{Key: "queryVector", Value: q.Embedding},
			{Key: "path", Value: fieldEmbedding},
			{Key: "numCandidates", Value: numCandidates},
			{Key: "limit", Value: q.Limit},
		}}},
	}, joinStages(settings, "vectorSearchScore")...)
}

// textPipeline builds the fuzzy Atlas Search aggregation.
func textPipeline(settings domain.MongoSettings, q driven.TextQuery) mongo.Pipeline {
	return append(mongo.Pipeline{
		{{Key: "$search", Value: bson.D{
			{Key: "index", Value: settings.TextIndex},
			{Key: "text", Value: bson.D{
				{Key: "query", Value: q.Text},
				{Key: "path", Value: fieldContent},
				{Key: "fuzzy", Value: bson.D{
					{Key: "maxEdits", Value: q.MaxEdits},
					{Key: "prefixLength", Value: q.PrefixLength},
				}},
			}},
		}}},
		{{Key: "$limit", Value: q.Limit}},
	}, joinStages(settings, "searchScore")...)
}

// joinStages attaches the parent document and projects the result shape.
// $unwind drops chunks whose document is missing.
func joinStages(settings domain.MongoSettings, scoreMeta string) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: settings.DocumentsCollection},
			{Key: "localField", Value: fieldDocumentID},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: documentJoinAs},
		}}},
		{{Key: "$unwind", Value: "$" + documentJoinAs}},
		{{Key: "$project", Value: bson.D{
			{Key: "chunk_id", Value: "$_id"},
			{Key: fieldDocumentID, Value: 1},
			{Key: fieldContent, Value: 1},
			{Key: fieldMetadata, Value: 1},
			{Key: "score", Value: bson.D{{Key: "$meta", Value: scoreMeta}}},
			{Key: "document_title", Value: "$" + documentJoinAs + ".title"},
			{Key: "document_source", Value: "$" + documentJoinAs + ".source"},
		}}},
	}
}

// resultDoc is the projected shape of one aggregation result.
type resultDoc struct {
	ChunkID        any            `bson:"chunk_id"`
	DocumentID     any            `bson:"document_id"`
	Content        string         `bson:"content"`
	Metadata       map[string]any `bson:"metadata"`
	Score          float64        `bson:"score"`
	DocumentTitle  string         `bson:"document_title"`
	DocumentSource string         `bson:"document_source"`
}

func (d resultDoc) toResult() domain.SearchResult {
	return domain.SearchResult{
		ChunkID:        idString(d.ChunkID),
		DocumentID:     idString(d.DocumentID),
		Content:        d.Content,
		Score:          d.Score,
		Metadata:       domain.ParseChunkMetadata(plainMap(d.Metadata)),
		DocumentTitle:  d.DocumentTitle,
		DocumentSource: d.DocumentSource,
	}
}

// idString renders an _id of any BSON type as a string.
func idString(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case bson.ObjectID:
		return id.Hex()
	default:
		return fmt.Sprint(id)
	}
}

// plainMap converts BSON container types into plain maps and slices so the
// domain parsers see []any and map[string]any.
func plainMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = plainValue(v)
	}
	return out
}

func plainValue(v any) any {
	switch t := v.(type) {
	case bson.A:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = plainValue(e)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = plainValue(e.Value)
		}
		return out
	case map[string]any:
		return plainMap(t)
	default:
		return v
	}
}
