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

// PostRepository defines the interface for post data operations
type PostRepository interface {
	CreatePost(ctx context.Context, post *models.Post) error
	GetPostByID(ctx context.Context, id string) (*models.Post, error)
	FindByTitle(ctx context.Context, title string) (*models.Post, error)
	GetAllPosts(ctx context.Context, kind string) ([]models.Post, error)
	GetPostsByOwner(ctx context.Context, ownerID uint) ([]models.Post, error)
	GetPostsByIDs(ctx context.Context, ids []string) ([]models.Post, error)
	UpdatePost(ctx context.Context, post *models.Post) error
	DeletePost(ctx context.Context, id string) error
}

// titleCollation compares titles ignoring case
var titleCollation = &options.Collation{Locale: "en", Strength: 2}

// MongoPostRepository implements PostRepository for MongoDB
type MongoPostRepository struct {
	collection *mongo.Collection
}

// NewMongoPostRepository creates a new MongoPostRepository
func NewMongoPostRepository(db *mongo.Database) *MongoPostRepository {
	return &MongoPostRepository{collection: db.Collection("posts")}
}

// EnsureIndexes creates the collated unique title index and the owner index
func (r *MongoPostRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "title", Value: 1}},
			Options: options.Index().SetUnique(true).SetCollation(titleCollation),
		},
		{Keys: bson.D{{Key: "owner_id", Value: 1}}},
	})
	return err
}

// CreatePost creates a new post in MongoDB
func (r *MongoPostRepository) CreatePost(ctx context.Context, post *models.Post) error {
	now := time.Now()
	post.ID = primitive.NewObjectID()
	post.CreatedAt = now
	post.UpdatedAt = now
	_, err := r.collection.InsertOne(ctx, post)
	return translate(err)
}

// GetPostByID retrieves a post by ID from MongoDB
func (r *MongoPostRepository) GetPostByID(ctx context.Context, id string) (*models.Post, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return r.findOne(ctx, bson.M{"_id": objID})
}

// FindByTitle matches the title case-insensitively
func (r *MongoPostRepository) FindByTitle(ctx context.Context, title string) (*models.Post, error) {
	return r.findOne(ctx, bson.M{"title": title}, options.FindOne().SetCollation(titleCollation))
}

// GetAllPosts lists posts of a kind, newest first; an empty kind lists everything
func (r *MongoPostRepository) GetAllPosts(ctx context.Context, kind string) ([]models.Post, error) {
	filter := bson.M{}
	if kind != "" {
		filter["kind"] = kind
	}
	return r.find(ctx, filter)
}

func (r *MongoPostRepository) GetPostsByOwner(ctx context.Context, ownerID uint) ([]models.Post, error) {
	return r.find(ctx, bson.M{"owner_id": ownerID})
}

func (r *MongoPostRepository) GetPostsByIDs(ctx context.Context, ids []string) ([]models.Post, error) {
	oids := objectIDs(ids)
	if len(oids) == 0 {
		return []models.Post{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": oids}})
}

// UpdatePost updates an existing post in MongoDB
func (r *MongoPostRepository) UpdatePost(ctx context.Context, post *models.Post) error {
	post.UpdatedAt = time.Now()
	update := bson.M{
		"$set": bson.M{
			"owner_id":   post.OwnerID,
			"title":      post.Title,
			"text":       post.Text,
			"completed":  post.Completed,
			"edited_by":  post.EditedBy,
			"updated_at": post.UpdatedAt,
		},
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": post.ID}, update)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeletePost deletes a post by ID from MongoDB
func (r *MongoPostRepository) DeletePost(ctx context.Context, id string) error {
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

func (r *MongoPostRepository) findOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*models.Post, error) {
	var post models.Post
	if err := r.collection.FindOne(ctx, filter, opts...).Decode(&post); err != nil {
		return nil, translate(err)
	}
	return &post, nil
}

func (r *MongoPostRepository) find(ctx context.Context, filter bson.M) ([]models.Post, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	posts := []models.Post{}
	if err = cursor.All(ctx, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}
