package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BerniceZTT/followup_ledger/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	// 集合名
	ClientsCollection          = "clients"
	InteractionsCollection     = "interactions"
	ApiOperationLogsCollection = "apiOperationLogs"
)

var collections = []string{
	ClientsCollection,
	InteractionsCollection,
	ApiOperationLogsCollection,
}

// MongoStore MongoDB存储
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// InitMongoDB 初始化MongoDB连接
func InitMongoDB(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	// 设置连接超时
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("连接MongoDB失败: %w", err)
	}

	// 检查连接
	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping MongoDB失败: %w", err)
	}

	utils.Logger.Info().Str("database", dbName).Msg("已连接到MongoDB")
	return NewMongoStore(client, dbName), nil
}

// NewMongoStore 使用已有连接创建存储
func NewMongoStore(client *mongo.Client, dbName string) *MongoStore {
	return &MongoStore{client: client, db: client.Database(dbName)}
}

// Close 关闭MongoDB连接
func (s *MongoStore) Close(ctx context.Context) {
	if s.client == nil {
		return
	}
	if err := s.client.Disconnect(ctx); err != nil {
		utils.Logger.Error().Err(err).Msg("断开MongoDB连接失败")
		return
	}
	utils.Logger.Info().Msg("已断开MongoDB连接")
}

func (s *MongoStore) collection(name string) *mongo.Collection {
	return s.db.Collection(name)
}

// InitializeCollections 初始化数据库集合和索引
func (s *MongoStore) InitializeCollections(ctx context.Context) error {
	existing, err := s.db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("检查集合失败: %w", err)
	}
	exists := make(map[string]bool, len(existing))
	for _, name := range existing {
		exists[name] = true
	}

	for _, collName := range collections {
		if exists[collName] {
			utils.Logger.Info().Str("collection", collName).Msg("集合已存在")
			continue
		}
		if err := s.db.CreateCollection(ctx, collName); err != nil {
			return fmt.Errorf("创建集合失败: %w", err)
		}
		utils.Logger.Info().Str("collection", collName).Msg("创建集合成功")
	}

	return s.ensureIndexes(ctx)
}

// ensureIndexes 创建查询索引，以及保证每个客户最多一条未替换跟进预约的部分唯一索引
func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.collection(InteractionsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "clientId", Value: 1}, {Key: "timestamp", Value: -1}, {Key: "seq", Value: -1}},
			Options: options.Index().SetName("client_timeline"),
		},
		{
			Keys: bson.D{{Key: "clientId", Value: 1}},
			Options: options.Index().
				SetName("client_live_follow_up").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{
					"type":        string(liveFollowUpType),
					"substituted": false,
				}),
		},
		{
			Keys:    bson.D{{Key: "actorId", Value: 1}, {Key: "type", Value: 1}, {Key: "timestamp", Value: 1}},
			Options: options.Index().SetName("actor_activity"),
		},
	})
	if err != nil {
		return fmt.Errorf("创建时间线索引失败: %w", err)
	}

	_, err = s.collection(ClientsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "ownerId", Value: 1}, {Key: "updatedAt", Value: -1}}, Options: options.Index().SetName("owner_updated")},
		{Keys: bson.D{{Key: "followUpState", Value: 1}, {Key: "followUpAt", Value: 1}}, Options: options.Index().SetName("follow_up_due")},
	})
	if err != nil {
		return fmt.Errorf("创建客户索引失败: %w", err)
	}
	return nil
}

// DatabaseStatus 获取数据库状态
func (s *MongoStore) DatabaseStatus(ctx context.Context) (map[string]interface{}, error) {
	result := map[string]interface{}{"driver": "mongo"}

	for _, collName := range collections {
		count, err := s.collection(collName).CountDocuments(ctx, bson.M{})
		if err != nil {
			utils.Logger.Error().Err(err).Str("collection", collName).Msg("获取集合计数失败")
			result[collName] = map[string]interface{}{
				"count": 0,
				"error": err.Error(),
			}
			continue
		}
		result[collName] = map[string]interface{}{"count": count}
	}

	return result, nil
}

// executeRead 执行读操作，网络类错误自动重试
func executeRead(operation func() error, retries int) error {
	if retries <= 0 {
		retries = 3
	}

	var lastErr error
	for i := 0; i < retries; i++ {
		err := operation()
		if err == nil {
			return nil
		}

		lastErr = err
		// 如果是不可重试的错误，立即返回
		if !isRetryableError(err) {
			break
		}
		utils.Logger.Warn().Err(err).Msgf("数据库读取失败，重试 (%d/%d)", i+1, retries)

		// 延迟后重试
		time.Sleep(time.Duration(200*(i+1)) * time.Millisecond)
	}

	return lastErr
}

// isRetryableError 判断错误是否可重试
func isRetryableError(err error) bool {
	if errors.Is(err, ErrNotFound) || errors.Is(err, mongo.ErrNoDocuments) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	// MongoDB可重试错误代码
	retryableCodes := map[int32]bool{
		6:     true, // HostUnreachable
		7:     true, // HostNotFound
		89:    true, // NetworkTimeout
		91:    true, // ShutdownInProgress
		189:   true, // PrimarySteppedDown
		10107: true, // NotMaster
		13436: true, // NotMasterNoSlaveOk
		11600: true, // InterruptedAtShutdown
		11602: true, // InterruptedDueToReplStateChange
	}

	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		return retryableCodes[cmdErr.Code]
	}

	return mongo.IsNetworkError(err) || mongo.IsTimeout(err) || isNetworkError(err)
}

// isNetworkError 检查是否是网络错误
func isNetworkError(err error) bool {
	errMsg := strings.ToLower(err.Error())
	networkErrors := []string{
		"connection refused",
		"connection reset",
		"connection closed",
		"no reachable servers",
		"server selection error",
	}

	for _, ne := range networkErrors {
		if strings.Contains(errMsg, ne) {
			return true
		}
	}
	return false
}
