package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/BerniceZTT/followup_ledger/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const liveFollowUpType = models.InteractionFollowUpScheduled

var newestFirst = bson.D{{Key: "timestamp", Value: -1}, {Key: "seq", Value: -1}}

// ListInteractions 查询客户时间线，按创建时间倒序
func (s *MongoStore) ListInteractions(ctx context.Context, clientID string) ([]models.Interaction, error) {
	return s.findInteractions(ctx, bson.M{"clientId": clientID})
}

// LiveFollowUps 查询未替换的跟进预约
func (s *MongoStore) LiveFollowUps(ctx context.Context, clientID string) ([]models.Interaction, error) {
	return s.findInteractions(ctx, bson.M{
		"clientId":    clientID,
		"type":        liveFollowUpType,
		"substituted": false,
	})
}

func (s *MongoStore) findInteractions(ctx context.Context, filter bson.M) ([]models.Interaction, error) {
	opts := options.Find().SetSort(newestFirst)

	records := []models.Interaction{}
	err := executeRead(func() error {
		cursor, err := s.collection(InteractionsCollection).Find(ctx, filter, opts)
		if err != nil {
			return err
		}
		defer cursor.Close(ctx)
		records = []models.Interaction{}
		return cursor.All(ctx, &records)
	}, 3)
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Commit 在一个事务中完成比较交换、替换标记、追加记录和客户字段更新
func (s *MongoStore) Commit(ctx context.Context, change Change) (*models.Client, error) {
	var updated models.Client

	err := s.withTransaction(ctx, func(sc mongo.SessionContext) error {
		clients := s.collection(ClientsCollection)
		interactions := s.collection(InteractionsCollection)
		n := int64(len(change.Append))

		set := bson.M{"updatedAt": change.At}
		if change.Patch.Status != nil {
			set["status"] = *change.Patch.Status
		}
		if change.Patch.FollowUpState != nil {
			set["followUpState"] = *change.Patch.FollowUpState
		}
		if change.Patch.FollowUpAt != nil {
			set["followUpAt"] = *change.Patch.FollowUpAt
		}

		err := clients.FindOneAndUpdate(sc,
			bson.M{"_id": change.ClientID, "version": change.ExpectedVersion},
			bson.M{"$set": set, "$inc": bson.M{"version": 1, "ledgerSeq": n}},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&updated)
		if err != nil {
			if !errors.Is(err, mongo.ErrNoDocuments) {
				return fmt.Errorf("更新客户失败: %w", err)
			}
			count, cerr := clients.CountDocuments(sc, bson.M{"_id": change.ClientID})
			if cerr != nil {
				return fmt.Errorf("检查客户失败: %w", cerr)
			}
			if count == 0 {
				return ErrNotFound
			}
			return ErrVersionConflict
		}

		// 先替换旧预约，再插入新预约，避免触发部分唯一索引
		for _, id := range change.Substitute {
			res, err := interactions.UpdateOne(sc,
				bson.M{"_id": id, "clientId": change.ClientID, "type": liveFollowUpType, "substituted": false},
				bson.M{"$set": bson.M{"substituted": true}},
			)
			if err != nil {
				return fmt.Errorf("标记跟进预约失败: %w", err)
			}
			if res.MatchedCount == 0 {
				return ErrVersionConflict
			}
		}

		if n == 0 {
			return nil
		}
		base := updated.LedgerSeq - n
		docs := make([]interface{}, 0, n)
		for i, e := range change.Append {
			e.ID = primitive.NewObjectID().Hex()
			e.ClientID = change.ClientID
			e.Seq = base + int64(i) + 1
			docs = append(docs, e)
		}
		if _, err := interactions.InsertMany(sc, docs); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return ErrLiveFollowUpExists
			}
			return fmt.Errorf("写入时间线失败: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// SaveOperationLog 保存操作日志到数据库
func (s *MongoStore) SaveOperationLog(ctx context.Context, log *models.OperationLog) error {
	log.ID = primitive.NewObjectID().Hex()
	_, err := s.collection(ApiOperationLogsCollection).InsertOne(ctx, log)
	return err
}
