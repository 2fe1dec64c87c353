package repositories

import (
	"context"
	"time"

	"github.com/anonto42/nano-forum/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ReplyRepository defines the interface for reply data operations
type ReplyRepository interface {
	CreateReply(ctx context.Context, reply *models.Reply) error
	GetReplyByID(ctx context.Context, id string) (*models.Reply, error)
	GetRepliesByPostID(ctx context.Context, postID string) ([]models.Reply, error)
	GetRepliesByIDs(ctx context.Context, ids []string) ([]models.ReplyView, error)
	GetRepliesByAuthor(ctx context.Context, authorID uint) ([]models.ReplyView, error)
	ReplyIDsByPostIDs(ctx context.Context, postIDs []string) ([]string, error)
	ReplyIDsByAuthor(ctx context.Context, authorID uint) ([]string, error)
	UpdateReplyText(ctx context.Context, id string, text string) (*models.Reply, error)
	DeleteReply(ctx context.Context, id string) error
	DeleteByPostIDs(ctx context.Context, postIDs []string) (int64, error)
	DeleteByAuthor(ctx context.Context, authorID uint) (int64, error)
}

// MongoReplyRepository implements ReplyRepository for MongoDB
type MongoReplyRepository struct {
	collection *mongo.Collection
	posts      string
}

// NewMongoReplyRepository creates a new MongoReplyRepository
func NewMongoReplyRepository(db *mongo.Database) *MongoReplyRepository {
	return &MongoReplyRepository{collection: db.Collection("replies"), posts: "posts"}
}

func (r *MongoReplyRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "post_id", Value: 1}}},
		{Keys: bson.D{{Key: "author_id", Value: 1}}},
	})
	return err
}

func (r *MongoReplyRepository) CreateReply(ctx context.Context, reply *models.Reply) error {
	now := time.Now()
	reply.ID = primitive.NewObjectID()
	reply.CreatedAt = now
	reply.UpdatedAt = now
	_, err := r.collection.InsertOne(ctx, reply)
	return translate(err)
}

func (r *MongoReplyRepository) GetReplyByID(ctx context.Context, id string) (*models.Reply, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var reply models.Reply
	if err := r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&reply); err != nil {
		return nil, translate(err)
	}
	return &reply, nil
}

// GetRepliesByPostID lists a post's replies, oldest first
func (r *MongoReplyRepository) GetRepliesByPostID(ctx context.Context, postID string) ([]models.Reply, error) {
	objID, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return []models.Reply{}, nil
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"post_id": objID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	replies := []models.Reply{}
	if err = cursor.All(ctx, &replies); err != nil {
		return nil, err
	}
	return replies, nil
}

func (r *MongoReplyRepository) GetRepliesByIDs(ctx context.Context, ids []string) ([]models.ReplyView, error) {
	oids := objectIDs(ids)
	if len(oids) == 0 {
		return []models.ReplyView{}, nil
	}
	return r.withPostTitle(ctx, bson.M{"_id": bson.M{"$in": oids}})
}

// GetRepliesByAuthor lists a user's replies with the parent post title populated
func (r *MongoReplyRepository) GetRepliesByAuthor(ctx context.Context, authorID uint) ([]models.ReplyView, error) {
	return r.withPostTitle(ctx, bson.M{"author_id": authorID})
}

// withPostTitle joins each matching reply with its post and projects the title
func (r *MongoReplyRepository) withPostTitle(ctx context.Context, match bson.M) ([]models.ReplyView, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: -1}}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         r.posts,
			"localField":   "post_id",
			"foreignField": "_id",
			"as":           "post",
		}}},
		{{Key: "$addFields", Value: bson.M{
			"post_title": bson.M{"$ifNull": bson.A{bson.M{"$first": "$post.title"}, ""}},
		}}},
		{{Key: "$project", Value: bson.M{"post": 0}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	views := []models.ReplyView{}
	if err = cursor.All(ctx, &views); err != nil {
		return nil, err
	}
	return views, nil
}

func (r *MongoReplyRepository) ReplyIDsByPostIDs(ctx context.Context, postIDs []string) ([]string, error) {
	oids := objectIDs(postIDs)
	if len(oids) == 0 {
		return []string{}, nil
	}
	return r.ids(ctx, bson.M{"post_id": bson.M{"$in": oids}})
}

func (r *MongoReplyRepository) ReplyIDsByAuthor(ctx context.Context, authorID uint) ([]string, error) {
	return r.ids(ctx, bson.M{"author_id": authorID})
}

func (r *MongoReplyRepository) UpdateReplyText(ctx context.Context, id string, text string) (*models.Reply, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	update := bson.M{"$set": bson.M{"text": text, "updated_at": time.Now()}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var reply models.Reply
	if err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": objID}, update, opts).Decode(&reply); err != nil {
		return nil, translate(err)
	}
	return &reply, nil
}

func (r *MongoReplyRepository) DeleteReply(ctx context.Context, id string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": objID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoReplyRepository) DeleteByPostIDs(ctx context.Context, postIDs []string) (int64, error) {
	oids := objectIDs(postIDs)
	if len(oids) == 0 {
		return 0, nil
	}
	res, err := r.collection.DeleteMany(ctx, bson.M{"post_id": bson.M{"$in": oids}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (r *MongoReplyRepository) DeleteByAuthor(ctx context.Context, authorID uint) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{"author_id": authorID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (r *MongoReplyRepository) ids(ctx context.Context, filter bson.M) ([]string, error) {
	opts := options.Find().SetProjection(bson.M{"_id": 1})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID.Hex()
	}
	return ids, nil
}
