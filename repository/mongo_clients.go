package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/BerniceZTT/followup_ledger/models"
	"github.com/BerniceZTT/followup_ledger/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CreateClient 在同一事务中写入客户和建档记录
func (s *MongoStore) CreateClient(ctx context.Context, client *models.Client, created *models.Interaction) error {
	client.ID = primitive.NewObjectID().Hex()
	client.Version = 1
	client.LedgerSeq = 0
	if created != nil {
		client.LedgerSeq = 1
		created.ID = primitive.NewObjectID().Hex()
		created.ClientID = client.ID
		created.Seq = 1
	}

	return s.withTransaction(ctx, func(sc mongo.SessionContext) error {
		if _, err := s.collection(ClientsCollection).InsertOne(sc, client); err != nil {
			return fmt.Errorf("创建客户失败: %w", err)
		}
		if created != nil {
			if _, err := s.collection(InteractionsCollection).InsertOne(sc, created); err != nil {
				return fmt.Errorf("创建建档记录失败: %w", err)
			}
		}
		return nil
	})
}

// GetClient 根据ID查找客户
func (s *MongoStore) GetClient(ctx context.Context, id string) (*models.Client, error) {
	var client models.Client
	err := executeRead(func() error {
		return s.collection(ClientsCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&client)
	}, 3)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &client, nil
}

// ListClients 获取客户列表，按更新时间倒序
func (s *MongoStore) ListClients(ctx context.Context, filter models.ClientFilter, now time.Time) ([]models.Client, error) {
	query := buildClientQuery(filter, now)
	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}, {Key: "_id", Value: 1}})

	var clients []models.Client
	err := executeRead(func() error {
		cursor, err := s.collection(ClientsCollection).Find(ctx, query, opts)
		if err != nil {
			return err
		}
		defer cursor.Close(ctx)
		clients = nil
		return cursor.All(ctx, &clients)
	}, 3)
	if err != nil {
		return nil, err
	}

	utils.LogDbOperation("find", ClientsCollection, query, len(clients))
	return clients, nil
}

// buildClientQuery 构建客户查询条件，跟进状态按推导规则转换为存储字段条件
func buildClientQuery(filter models.ClientFilter, now time.Time) bson.M {
	var conds []bson.M

	if filter.OwnerID != "" {
		conds = append(conds, bson.M{"ownerId": filter.OwnerID})
	}
	if filter.Status != "" {
		conds = append(conds, bson.M{"status": filter.Status})
	}

	switch filter.FollowUpState {
	case "":
	case models.FollowUpDelayed:
		conds = append(conds, bson.M{
			"followUpState": models.FollowUpActive,
			"followUpAt":    bson.M{"$lt": now},
		})
	case models.FollowUpActive:
		conds = append(conds, bson.M{
			"followUpState": models.FollowUpActive,
			"$or": bson.A{
				bson.M{"followUpAt": bson.M{"$gte": now}},
				bson.M{"followUpAt": nil},
			},
		})
	case models.FollowUpNone:
		conds = append(conds, bson.M{"followUpState": bson.M{"$in": bson.A{models.FollowUpNone, "", nil}}})
	default:
		conds = append(conds, bson.M{"followUpState": filter.FollowUpState})
	}

	if q := strings.TrimSpace(filter.Query); q != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(q), Options: "i"}
		conds = append(conds, bson.M{"$or": bson.A{
			bson.M{"name": pattern},
			bson.M{"phone": pattern},
			bson.M{"email": pattern},
		}})
	}

	switch len(conds) {
	case 0:
		return bson.M{}
	case 1:
		return conds[0]
	}
	and := make(bson.A, 0, len(conds))
	for _, c := range conds {
		and = append(and, c)
	}
	return bson.M{"$and": and}
}

// DeleteClient 删除客户及其时间线
func (s *MongoStore) DeleteClient(ctx context.Context, id string) error {
	return s.withTransaction(ctx, func(sc mongo.SessionContext) error {
		res, err := s.collection(ClientsCollection).DeleteOne(sc, bson.M{"_id": id})
		if err != nil {
			return fmt.Errorf("删除客户失败: %w", err)
		}
		if res.DeletedCount == 0 {
			return ErrNotFound
		}
		if _, err := s.collection(InteractionsCollection).DeleteMany(sc, bson.M{"clientId": id}); err != nil {
			return fmt.Errorf("删除客户时间线失败: %w", err)
		}
		return nil
	})
}

// withTransaction 在事务中执行写操作
func (s *MongoStore) withTransaction(ctx context.Context, fn func(sc mongo.SessionContext) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("开启会话失败: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}
