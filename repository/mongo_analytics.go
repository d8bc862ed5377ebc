package repository

import (
	"context"

	"github.com/BerniceZTT/followup_ledger/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// buildInteractionMatch 统计条件转换为 $match
func buildInteractionMatch(q InteractionQuery) bson.M {
	match := bson.M{}
	if q.ActorID != "" {
		match["actorId"] = q.ActorID
	}
	if len(q.Types) > 0 {
		match["type"] = bson.M{"$in": q.Types}
	}
	span := bson.M{}
	if !q.From.IsZero() {
		span["$gte"] = q.From
	}
	if !q.To.IsZero() {
		span["$lt"] = q.To
	}
	if len(span) > 0 {
		match["timestamp"] = span
	}
	return match
}

// CountByDay 按UTC日期统计记录数
func (s *MongoStore) CountByDay(ctx context.Context, q InteractionQuery) ([]models.DailyCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: buildInteractionMatch(q)}},
		{{Key: "$group", Value: bson.M{
			"_id": bson.M{"$dateToString": bson.M{
				"format":   "%Y-%m-%d",
				"date":     "$timestamp",
				"timezone": "UTC",
			}},
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}

	out := []models.DailyCount{}
	err := executeRead(func() error {
		cursor, err := s.collection(InteractionsCollection).Aggregate(ctx, pipeline)
		if err != nil {
			return err
		}
		defer cursor.Close(ctx)
		out = []models.DailyCount{}
		return cursor.All(ctx, &out)
	}, 3)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CountStageEntries 区间内进入各销售阶段的客户数
func (s *MongoStore) CountStageEntries(ctx context.Context, q InteractionQuery) (map[models.ClientStatus]int, error) {
	match := buildInteractionMatch(q)
	if _, ok := match["type"]; !ok {
		match["type"] = bson.M{"$in": []models.InteractionType{models.InteractionClientCreated, models.InteractionStatusChange}}
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$project", Value: bson.M{
			"clientId": 1,
			"stage": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$type", models.InteractionClientCreated}},
				models.StatusFirstContact,
				"$toStatus",
			}},
		}}},
		{{Key: "$match", Value: bson.M{"stage": bson.M{"$nin": bson.A{nil, ""}}}}},
		{{Key: "$group", Value: bson.M{"_id": bson.M{"stage": "$stage", "clientId": "$clientId"}}}},
		{{Key: "$group", Value: bson.M{"_id": "$_id.stage", "count": bson.M{"$sum": 1}}}},
	}

	var rows []struct {
		Stage models.ClientStatus `bson:"_id"`
		Count int                 `bson:"count"`
	}
	err := executeRead(func() error {
		cursor, err := s.collection(InteractionsCollection).Aggregate(ctx, pipeline)
		if err != nil {
			return err
		}
		defer cursor.Close(ctx)
		rows = nil
		return cursor.All(ctx, &rows)
	}, 3)
	if err != nil {
		return nil, err
	}

	out := make(map[models.ClientStatus]int, len(rows))
	for _, r := range rows {
		out[r.Stage] = r.Count
	}
	return out, nil
}
