package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/KhanMaytok/pixl-interview/internal/apperr"
	"github.com/KhanMaytok/pixl-interview/internal/domain"
)

// MessageRepository persists chats and messages. Chat identity is the
// canonical (low_id, high_id) pair; the unique compound index on it is what
// makes concurrent first contact from both directions collapse into one
// chat document.
type MessageRepository struct {
	chats    *mongo.Collection
	messages *mongo.Collection
	counters *mongo.Collection
	log      *zap.SugaredLogger
}

func NewMessageRepository(db *mongo.Database, log *zap.SugaredLogger) *MessageRepository {
	r := &MessageRepository{
		chats:    db.Collection("chats"),
		messages: db.Collection("messages"),
		counters: db.Collection("counters"),
		log:      log,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := r.chats.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "low_id", Value: 1}, {Key: "high_id", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("chat_pair_idx"),
	})
	if err != nil {
		log.Warnw("create chat pair index", "err", err)
	}
	_, err = r.messages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "chat_id", Value: 1}, {Key: "created_at", Value: 1}, {Key: "_id", Value: 1}},
		Options: options.Index().SetName("chat_history_idx"),
	})
	if err != nil {
		log.Warnw("create history index", "err", err)
	}
	return r
}

// nextID hands out monotonically increasing int64 ids from the counters
// collection. Ids abandoned by a lost upsert race leave gaps, which is fine.
func (r *MessageRepository) nextID(ctx context.Context, name string) (int64, error) {
	res := r.counters.FindOneAndUpdate(
		ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	)
	var doc struct {
		Seq int64 `bson:"seq"`
	}
	if err := res.Decode(&doc); err != nil {
		return 0, err
	}
	return doc.Seq, nil
}

// GetOrCreateChat is the atomic conditional-insert-or-fetch keyed on the
// canonical pair. The steady state (chat exists) is a plain find; only a
// miss allocates an id and runs the FindOneAndUpdate with $setOnInsert plus
// upsert, so two users opening the same conversation simultaneously still
// end up on the same document while the per-message path stays one read.
func (r *MessageRepository) GetOrCreateChat(ctx context.Context, pair domain.Pair) (*domain.Chat, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	chat, err := r.FindChat(ctx, pair)
	if err == nil {
		return chat, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	id, err := r.nextID(ctx, "chats")
	if err != nil {
		return nil, err
	}

	filter := bson.M{"low_id": pair.Low, "high_id": pair.High}
	update := bson.M{"$setOnInsert": bson.M{
		"_id":        id,
		"low_id":     pair.Low,
		"high_id":    pair.High,
		"created_at": time.Now().UTC(),
	}}
	res := r.chats.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After))

	var created domain.Chat
	if err := res.Decode(&created); err != nil {
		// Losing the upsert race against the unique index surfaces as a
		// duplicate key error; the winning document is already there. The
		// allocated id is abandoned, leaving a gap, which is fine.
		if mongo.IsDuplicateKeyError(err) {
			return r.FindChat(ctx, pair)
		}
		return nil, err
	}
	return &created, nil
}

// FindChatByID resolves a chat from a message's chat_id.
func (r *MessageRepository) FindChatByID(ctx context.Context, chatID int64) (*domain.Chat, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var chat domain.Chat
	err := r.chats.FindOne(ctx, bson.M{"_id": chatID}).Decode(&chat)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

// FindChat returns apperr.ErrNotFound when the pair never talked.
func (r *MessageRepository) FindChat(ctx context.Context, pair domain.Pair) (*domain.Chat, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var chat domain.Chat
	err := r.chats.FindOne(ctx, bson.M{"low_id": pair.Low, "high_id": pair.High}).Decode(&chat)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

// InsertMessage assigns the message id and timestamp and persists it.
func (r *MessageRepository) InsertMessage(ctx context.Context, m *domain.Message) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	id, err := r.nextID(ctx, "messages")
	if err != nil {
		return err
	}
	m.ID = id
	m.CreatedAt = time.Now().UTC()
	m.Edited = false
	m.DeletedFor = nil

	_, err = r.messages.InsertOne(ctx, m)
	return err
}

// visibilityFilter selects the messages of a chat that userID may see:
// nothing hidden for them personally, and nothing at or before their trash
// cutoff when one exists.
func visibilityFilter(chatID, userID int64, cutoff *time.Time) bson.M {
	filter := bson.M{
		"chat_id": chatID,
		"$or": []bson.M{
			{"deleted_for": nil},
			{"deleted_for": bson.M{"$ne": userID}},
		},
	}
	if cutoff != nil {
		filter["created_at"] = bson.M{"$gt": *cutoff}
	}
	return filter
}

// historySort orders ascending by creation time, ties broken by insertion id.
func historySort() bson.D {
	return bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}
}

// ListVisible returns userID's view of the chat history, recomputed fresh
// on every call.
func (r *MessageRepository) ListVisible(ctx context.Context, chatID, userID int64, cutoff *time.Time) ([]domain.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cur, err := r.messages.Find(ctx, visibilityFilter(chatID, userID, cutoff),
		options.Find().SetSort(historySort()))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []domain.Message{}
	for cur.Next(ctx) {
		var m domain.Message
		if err := cur.Decode(&m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, cur.Err()
}

// Edit mutates content under a single authorization predicate: the filter
// matches only when the message exists and userID is its sender, so a
// non-owner cannot distinguish "not yours" from "not there".
func (r *MessageRepository) Edit(ctx context.Context, messageID, userID int64, content string, now time.Time) (*domain.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res := r.messages.FindOneAndUpdate(
		ctx,
		bson.M{"_id": messageID, "sender_id": userID},
		bson.M{"$set": bson.M{"content": content, "edited": true, "edited_at": now}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	var m domain.Message
	if err := res.Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.ErrNotFoundOrForbidden
		}
		return nil, err
	}
	return &m, nil
}

// HideFor marks the message hidden from userID's view only. Either
// participant may hide, and re-hiding by the same user is a no-op.
func (r *MessageRepository) HideFor(ctx context.Context, messageID, userID int64) (*domain.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res := r.messages.FindOneAndUpdate(
		ctx,
		bson.M{"_id": messageID},
		bson.M{"$set": bson.M{"deleted_for": userID}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	var m domain.Message
	if err := res.Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.ErrNotFoundOrForbidden
		}
		return nil, err
	}
	return &m, nil
}

// LastVisible returns the newest message of userID's view, or
// apperr.ErrNotFound when the view is empty.
func (r *MessageRepository) LastVisible(ctx context.Context, chatID, userID int64, cutoff *time.Time) (*domain.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	var m domain.Message
	err := r.messages.FindOne(ctx, visibilityFilter(chatID, userID, cutoff), opts).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}
