package storage

import (
	"context"
	"time"

	"CrossChat/module/chat/model"
	"CrossChat/tools/ids"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoConfig holds connection settings for the chat database.
type MongoConfig struct {
	URI         string
	Database    string
	MaxPoolSize int
}

// Mongo implements Storage against the chats/messages collections,
// matching the layout the REST side of the system persists.
type Mongo struct {
	ChatColl *mongo.Collection
	MsgColl  *mongo.Collection
}

func NewMongo(ctx context.Context, cfg MongoConfig) (*Mongo, error) {
	if cfg.URI == "" {
		return nil, errors.New("mongo uri is required")
	}
	if cfg.Database == "" {
		cfg.Database = "crosschat"
	}
	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(uint64(cfg.MaxPoolSize))
	}
	cli, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, errors.Wrap(err, "mongo connect")
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := cli.Ping(pingCtx, nil); err != nil {
		return nil, errors.Wrap(err, "mongo ping")
	}
	db := cli.Database(cfg.Database)
	return &Mongo{
		ChatColl: db.Collection("chats"),
		MsgColl:  db.Collection("messages"),
	}, nil
}

func (s *Mongo) FindRoomsForUser(ctx context.Context, userID string) ([]string, error) {
	cur, err := s.ChatColl.Find(ctx,
		bson.M{"participants": userID},
		options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, errors.Wrap(err, "find rooms")
	}
	defer func() { _ = cur.Close(ctx) }()

	var out []string
	for cur.Next(ctx) {
		var doc struct {
			ID string `bson:"_id"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, errors.Wrap(err, "decode room id")
		}
		out = append(out, doc.ID)
	}
	return out, cur.Err()
}

func (s *Mongo) IsRoomMember(ctx context.Context, userID, roomID string) (bool, error) {
	n, err := s.ChatColl.CountDocuments(ctx, bson.M{
		"_id":          roomID,
		"participants": userID,
	}, options.Count().SetLimit(1))
	if err != nil {
		return false, errors.Wrap(err, "membership lookup")
	}
	return n > 0, nil
}

func (s *Mongo) SaveMessage(ctx context.Context, msg *model.Message) (*model.Message, error) {
	cp := *msg
	if cp.ID == "" {
		cp.ID = ids.GenerateString()
	}
	if cp.Status == "" {
		cp.Status = model.StateSent
	}
	if cp.CreatedAt == 0 {
		cp.CreatedAt = time.Now().UnixMilli()
	}
	if _, err := s.MsgColl.InsertOne(ctx, &cp); err != nil {
		return nil, errors.Wrap(err, "insert message")
	}
	return &cp, nil
}

func (s *Mongo) UpdateRoomLastMessage(ctx context.Context, roomID, messageID string, at int64) error {
	res, err := s.ChatColl.UpdateByID(ctx, roomID, bson.M{
		"$set": bson.M{"last_message_id": messageID, "last_message_at": at},
	})
	if err != nil {
		return errors.Wrap(err, "update last message")
	}
	if res.MatchedCount == 0 {
		return ErrRoomNotFound
	}
	return nil
}

// statesBelow lists the states a transition to `state` may start from.
func statesBelow(state model.DeliveryState) []model.DeliveryState {
	switch state {
	case model.StateDelivered:
		return []model.DeliveryState{model.StateSent}
	case model.StateRead:
		return []model.DeliveryState{model.StateSent, model.StateDelivered}
	}
	return nil
}

func (s *Mongo) UpdateMessageState(ctx context.Context, messageID string, state model.DeliveryState, reader string) (*model.Message, bool, error) {
	var cur model.Message
	err := s.MsgColl.FindOne(ctx, bson.M{"_id": messageID}).Decode(&cur)
	if err == mongo.ErrNoDocuments {
		return nil, false, ErrMessageNotFound
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "load message")
	}

	changed := false

	// Advance the status with a guarded filter so concurrent acks
	// cannot regress it.
	if from := statesBelow(state); from != nil {
		res, err := s.MsgColl.UpdateOne(ctx, bson.M{
			"_id":    messageID,
			"status": bson.M{"$in": from},
		}, bson.M{"$set": bson.M{"status": state}})
		if err != nil {
			return nil, false, errors.Wrap(err, "advance status")
		}
		changed = res.ModifiedCount > 0
	}

	// Record the reader receipt once per user, never for the sender.
	if reader != "" && reader != cur.SenderID {
		res, err := s.MsgColl.UpdateOne(ctx, bson.M{
			"_id":             messageID,
			"read_by.user_id": bson.M{"$ne": reader},
		}, bson.M{"$push": bson.M{"read_by": model.ReadReceipt{
			UserID: reader,
			ReadAt: time.Now().UnixMilli(),
		}}})
		if err != nil {
			return nil, false, errors.Wrap(err, "record receipt")
		}
		if res.ModifiedCount > 0 {
			changed = true
		}
	}

	var out model.Message
	if err := s.MsgColl.FindOne(ctx, bson.M{"_id": messageID}).Decode(&out); err != nil {
		return nil, false, errors.Wrap(err, "reload message")
	}
	return &out, changed, nil
}
