package etl

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/BartekS5/lakecheck/pkg/logger"
	"github.com/BartekS5/lakecheck/pkg/models"
)

const (
	runsCollection       = "lake_runs"
	partitionsCollection = "lake_partition_reports"
)

// MongoSink stores one run document and one report document per partition.
type MongoSink struct {
	Client      *mongo.Client
	Database    string
	Transformer *Transformer
}

func NewMongoSink(client *mongo.Client, database string) *MongoSink {
	return &MongoSink{
		Client:      client,
		Database:    database,
		Transformer: NewTransformer(),
	}
}

func (m *MongoSink) Write(ctx context.Context, summary *models.RunSummary) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	db := m.Client.Database(m.Database)

	runDoc := m.Transformer.RunDocument(summary)
	delete(runDoc, "_id")
	_, err := db.Collection(runsCollection).UpdateOne(ctx,
		bson.M{"_id": summary.RunID},
		bson.M{"$set": runDoc},
		options.Update().SetUpsert(true))
	if err != nil {
		return err
	}

	var writes []mongo.WriteModel
	for _, res := range summary.Partitions {
		doc := m.Transformer.PartitionDocument(summary.RunID, res)
		id := doc["_id"]
		delete(doc, "_id")
		model := mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": id}).
			SetUpdate(bson.M{"$set": doc}).
			SetUpsert(true)
		writes = append(writes, model)
	}

	if len(writes) > 0 {
		res, err := db.Collection(partitionsCollection).BulkWrite(ctx, writes)
		if err != nil {
			return err
		}
		logger.Infof("Mongo BulkWrite: Match %d, Mod %d, Upsert %d", res.MatchedCount, res.ModifiedCount, res.UpsertedCount)
	}
	return nil
}

func (m *MongoSink) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.Client.Disconnect(ctx)
}

// LoadRun reads back a stored run aggregate.
func (m *MongoSink) LoadRun(ctx context.Context, runID string) (*models.LakeAggregate, error) {
	var doc struct {
		CustomerIDs []interface{} `bson:"customer_ids"`
		ProductSKUs []interface{} `bson:"product_skus"`
	}
	err := m.Client.Database(m.Database).Collection(runsCollection).
		FindOne(ctx, bson.M{"_id": runID}).Decode(&doc)
	if err != nil {
		return nil, err
	}
	agg := models.NewLakeAggregate()
	agg.CustomerIDs = append(agg.CustomerIDs, doc.CustomerIDs...)
	agg.ProductSKUs.Append(doc.ProductSKUs...)
	return agg, nil
}
