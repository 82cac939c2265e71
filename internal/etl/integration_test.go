package etl

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/BartekS5/lakecheck/pkg/database"
	"github.com/BartekS5/lakecheck/pkg/models"
)

// These tests need live services and run only when the matching
// LAKECHECK_TEST_* variable is set.

func TestMongoSink_Integration(t *testing.T) {
	uri := os.Getenv("LAKECHECK_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("LAKECHECK_TEST_MONGO_URI not set")
	}
	ctx := context.Background()

	client, err := database.ConnectMongo(ctx, uri)
	require.NoError(t, err)

	dbName := "lakecheck_test_" + uuid.NewString()[:8]
	sink := NewMongoSink(client, dbName)
	defer func() {
		_ = client.Database(dbName).Drop(context.Background())
		sink.Close()
	}()

	root := buildLake(t, 2)
	summary, err := NewPipeline(root, models.DefaultLayout(), sink, 2, false).Run(ctx)
	require.NoError(t, err)

	agg, err := sink.LoadRun(ctx, summary.RunID)
	require.NoError(t, err)
	assert.Equal(t, summary.Aggregate.CustomerIDs, agg.CustomerIDs)
	assert.Equal(t, summary.Aggregate.SortedSKUs(), agg.SortedSKUs())

	n, err := client.Database(dbName).Collection(partitionsCollection).
		CountDocuments(ctx, bson.M{"run_id": summary.RunID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// writing the same run again upserts in place
	require.NoError(t, sink.Write(ctx, summary))
	n, err = client.Database(dbName).Collection(partitionsCollection).
		CountDocuments(ctx, bson.M{"run_id": summary.RunID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestKafkaSink_Integration(t *testing.T) {
	brokers := os.Getenv("LAKECHECK_TEST_KAFKA_BROKERS")
	if brokers == "" {
		t.Skip("LAKECHECK_TEST_KAFKA_BROKERS not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	topic := "lakecheck-test-" + uuid.NewString()
	addrs := strings.Split(brokers, ",")

	w := NewKafkaWriter(addrs, topic)
	w.AllowAutoTopicCreation = true
	sink := NewKafkaSink(w)
	defer sink.Close()

	summary := sampleSummary()
	require.NoError(t, sink.Write(ctx, summary))

	r := kafka.NewReader(kafka.ReaderConfig{Brokers: addrs, Topic: topic})
	defer r.Close()

	seen := map[string]int{}
	for i := 0; i < len(summary.Partitions)+1; i++ {
		msg, err := r.ReadMessage(ctx)
		require.NoError(t, err)
		seen[header(msg, "type")]++
		if header(msg, "type") == "run" {
			var run map[string]any
			require.NoError(t, json.Unmarshal(msg.Value, &run))
			assert.Equal(t, summary.RunID, run["_id"])
		}
	}
	assert.Equal(t, map[string]int{"partition": 2, "run": 1}, seen)
}
