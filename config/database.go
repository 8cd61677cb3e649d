package config

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

var MongoConn *mongo.Client

var DBName = "attendance-tracker-db"
var UserCollection = "users"
var AttendanceCollection = "attendances"
var ShiftCollection = "shifts"
var QRCodeCollection = "qr_codes"

func MongoConnect(mongoURI string) {
	if mongoURI == "" {
		log.Fatal("MONGO_URI is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		log.Fatalf("Failed to ping MongoDB: %v", err)
	}

	log.Println("Connected to MongoDB")
	MongoConn = client
}

// InitDatabase creates the indexes the repositories rely on. The compound
// unique index on (user_id, date) guarantees at most one attendance
// document per user per day; the conditional session updates build on it.
func InitDatabase() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	attendanceIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "date", Value: 1}},
		},
	}
	if _, err := GetCollection(AttendanceCollection).Indexes().CreateMany(ctx, attendanceIndexes); err != nil {
		log.Fatalf("Failed to create attendance indexes: %v", err)
	}

	userIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := GetCollection(UserCollection).Indexes().CreateOne(ctx, userIndex); err != nil {
		log.Fatalf("Failed to create user email index: %v", err)
	}

	shiftIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "effective_date", Value: 1}},
	}
	if _, err := GetCollection(ShiftCollection).Indexes().CreateOne(ctx, shiftIndex); err != nil {
		log.Fatalf("Failed to create shift index: %v", err)
	}

	log.Println("Database indexes ensured")
}

func GetCollection(collectionName string) *mongo.Collection {
	if MongoConn == nil {
		log.Fatal("MongoDB client is not initialized. Call MongoConnect() first")
	}
	return MongoConn.Database(DBName).Collection(collectionName)
}

func DisconnectDB() {
	if MongoConn != nil {
		if err := MongoConn.Disconnect(context.Background()); err != nil {
			log.Fatalf("Error disconnecting from MongoDB: %v", err)
		}
		log.Println("Disconnected from MongoDB")
	}
}
