package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/KhanMaytok/pixl-interview/internal/domain"
)

// TrashRepository is the append-only ledger of "delete conversation"
// actions. It never touches message documents and never garbage-collects
// superseded entries.
type TrashRepository struct {
	coll *mongo.Collection
	log  *zap.SugaredLogger
}

func NewTrashRepository(db *mongo.Database, log *zap.SugaredLogger) *TrashRepository {
	r := &TrashRepository{coll: db.Collection("trash_entries"), log: log}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "chat_id", Value: 1}, {Key: "user_id", Value: 1}, {Key: "deleted_at", Value: -1}},
		Options: options.Index().SetName("trash_cutoff_idx"),
	})
	if err != nil {
		log.Warnw("create trash index", "err", err)
	}
	return r
}

// RecordDeletion appends a new entry stamped with the current instant.
func (r *TrashRepository) RecordDeletion(ctx context.Context, chatID, userID int64) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.coll.InsertOne(ctx, domain.TrashEntry{
		ChatID:    chatID,
		UserID:    userID,
		DeletedAt: time.Now().UTC(),
	})
	return err
}

// CurrentCutoff returns the latest deletion instant for (chat, user), or
// nil when the user never trashed this conversation.
func (r *TrashRepository) CurrentCutoff(ctx context.Context, chatID, userID int64) (*time.Time, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	opts := options.FindOne().SetSort(bson.D{{Key: "deleted_at", Value: -1}})
	var entry domain.TrashEntry
	err := r.coll.FindOne(ctx, bson.M{"chat_id": chatID, "user_id": userID}, opts).Decode(&entry)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry.DeletedAt, nil
}
