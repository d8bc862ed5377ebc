package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/BerniceZTT/followup_ledger/models"
)

func TestBuildClientQuery(t *testing.T) {
	now := base

	assert.Equal(t, bson.M{}, buildClientQuery(models.ClientFilter{}, now))
	assert.Equal(t, bson.M{"ownerId": "b1"}, buildClientQuery(models.ClientFilter{OwnerID: "b1"}, now))

	delayed := buildClientQuery(models.ClientFilter{FollowUpState: models.FollowUpDelayed}, now)
	assert.Equal(t, bson.M{
		"followUpState": models.FollowUpActive,
		"followUpAt":    bson.M{"$lt": now},
	}, delayed)

	combined := buildClientQuery(models.ClientFilter{OwnerID: "b1", Status: models.StatusHandling, Query: "a.b"}, now)
	and, ok := combined["$and"].(bson.A)
	require.True(t, ok)
	require.Len(t, and, 3)
	search := and[2].(bson.M)["$or"].(bson.A)
	assert.Equal(t, primitive.Regex{Pattern: `a\.b`, Options: "i"}, search[0].(bson.M)["name"])

	terminal := buildClientQuery(models.ClientFilter{FollowUpState: models.FollowUpLost}, now)
	assert.Equal(t, bson.M{"followUpState": models.FollowUpLost}, terminal)
}

func TestBuildInteractionMatch(t *testing.T) {
	assert.Equal(t, bson.M{}, buildInteractionMatch(InteractionQuery{}))

	from := base
	to := base.Add(24 * time.Hour)
	match := buildInteractionMatch(InteractionQuery{
		Types:   []models.InteractionType{models.InteractionCallInitiated},
		ActorID: "b1",
		From:    from,
		To:      to,
	})
	assert.Equal(t, bson.M{
		"actorId":   "b1",
		"type":      bson.M{"$in": []models.InteractionType{models.InteractionCallInitiated}},
		"timestamp": bson.M{"$gte": from, "$lt": to},
	}, match)
}

func TestIsRetryableError(t *testing.T) {
	assert.False(t, isRetryableError(ErrNotFound))
	assert.False(t, isRetryableError(mongo.ErrNoDocuments))
	assert.False(t, isRetryableError(context.Canceled))
	assert.True(t, isRetryableError(mongo.CommandError{Code: 189}))
	assert.False(t, isRetryableError(mongo.CommandError{Code: 11000}))
	assert.True(t, isRetryableError(errors.New("server selection error: no reachable servers")))
}

func TestExecuteRead_StopsOnPermanentError(t *testing.T) {
	calls := 0
	err := executeRead(func() error {
		calls++
		return mongo.ErrNoDocuments
	}, 3)
	assert.ErrorIs(t, err, mongo.ErrNoDocuments)
	assert.Equal(t, 1, calls)
}

// 需要副本集才能使用事务，例如 MONGO_TEST_URI=mongodb://127.0.0.1:27017/?replicaSet=rs0
func TestMongoStore(t *testing.T) {
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI 未设置")
	}

	ctx := context.Background()
	dbName := fmt.Sprintf("ledger_test_%d", time.Now().UnixNano())
	store, err := InitMongoDB(ctx, uri, dbName)
	require.NoError(t, err)
	defer func() {
		_ = store.db.Drop(ctx)
		store.Close(ctx)
	}()
	require.NoError(t, store.InitializeCollections(ctx))

	runStoreContract(t, store)

	t.Run("partial unique index rejects second live follow-up", func(t *testing.T) {
		c, created := newClient("broker-1", "Indice")
		require.NoError(t, store.CreateClient(ctx, c, created))

		for i := 0; i < 2; i++ {
			doc := scheduled("broker-1", base, base.Add(time.Hour))
			doc.ID = primitive.NewObjectID().Hex()
			doc.ClientID = c.ID
			_, err = store.collection(InteractionsCollection).InsertOne(ctx, doc)
			if i == 0 {
				require.NoError(t, err)
			} else {
				assert.True(t, mongo.IsDuplicateKeyError(err))
			}
		}
	})
}
