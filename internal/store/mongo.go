package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ayush/task-manager-api/internal/models"
)

// MongoStore keeps users and tasks in two MongoDB collections.
type MongoStore struct {
	users *mongo.Collection
	tasks *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		users: db.Collection("users"),
		tasks: db.Collection("tasks"),
	}
}

// Migrate creates the unique email index and the owner/createdAt index
// used by listing and quota counts.
func (s *MongoStore) Migrate(ctx context.Context) error {
	_, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("mongo users index: %w", err)
	}
	_, err = s.tasks.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("mongo tasks index: %w", err)
	}
	return nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.users.Database().Client().Ping(ctx, nil)
}

// ── Users ────────────────────────────────────────────────────

func (s *MongoStore) CreateUser(ctx context.Context, u *models.User) error {
	now := time.Now()
	u.ID = primitive.NewObjectID()
	u.CreatedAt, u.UpdatedAt = now, now
	if _, err := s.users.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("mongo insert user: %w", err)
	}
	return nil
}

func (s *MongoStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"email": email})
}

func (s *MongoStore) GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.findUser(ctx, bson.M{"_id": id})
}

func (s *MongoStore) findUser(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	if err := s.users.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("mongo find user: %w", err)
	}
	return &u, nil
}

func (s *MongoStore) UpdateUser(ctx context.Context, u *models.User) error {
	u.UpdatedAt = time.Now()
	res, err := s.users.UpdateOne(ctx, bson.M{"_id": u.ID}, bson.M{"$set": bson.M{
		"name":      u.Name,
		"email":     u.Email,
		"password":  u.Password,
		"updatedAt": u.UpdatedAt,
	}})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("mongo update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) DeleteUser(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.users.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("mongo delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ── Tasks ────────────────────────────────────────────────────

func (s *MongoStore) CountTasks(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	n, err := s.tasks.CountDocuments(ctx, bson.M{"user": userID})
	if err != nil {
		return 0, fmt.Errorf("mongo count tasks: %w", err)
	}
	return n, nil
}

func (s *MongoStore) CountTasksSince(ctx context.Context, userID primitive.ObjectID, since time.Time) (int64, error) {
	n, err := s.tasks.CountDocuments(ctx, bson.M{
		"user":      userID,
		"createdAt": bson.M{"$gte": since},
	})
	if err != nil {
		return 0, fmt.Errorf("mongo count tasks since: %w", err)
	}
	return n, nil
}

func (s *MongoStore) InsertTask(ctx context.Context, t *models.Task) error {
	now := time.Now()
	t.ID = primitive.NewObjectID()
	t.CreatedAt, t.UpdatedAt = now, now
	if _, err := s.tasks.InsertOne(ctx, t); err != nil {
		return fmt.Errorf("mongo insert task: %w", err)
	}
	return nil
}

func (s *MongoStore) ListTasks(ctx context.Context, userID primitive.ObjectID) ([]models.Task, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := s.tasks.Find(ctx, bson.M{"user": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo list tasks: %w", err)
	}
	defer cur.Close(ctx)

	var tasks []models.Task
	if err := cur.All(ctx, &tasks); err != nil {
		return nil, fmt.Errorf("mongo decode tasks: %w", err)
	}
	return tasks, nil
}

func (s *MongoStore) UpdateTask(ctx context.Context, id, userID primitive.ObjectID, upd models.TaskUpdate) (*models.Task, error) {
	set := bson.M{"updatedAt": time.Now()}
	if upd.Title != nil {
		set["title"] = *upd.Title
	}
	if upd.Completed != nil {
		set["completed"] = *upd.Completed
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var t models.Task
	err := s.tasks.FindOneAndUpdate(ctx, bson.M{"_id": id, "user": userID}, bson.M{"$set": set}, opts).Decode(&t)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("mongo update task: %w", err)
	}
	return &t, nil
}

func (s *MongoStore) DeleteTask(ctx context.Context, id, userID primitive.ObjectID) error {
	res, err := s.tasks.DeleteOne(ctx, bson.M{"_id": id, "user": userID})
	if err != nil {
		return fmt.Errorf("mongo delete task: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) DeleteTasksByUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	res, err := s.tasks.DeleteMany(ctx, bson.M{"user": userID})
	if err != nil {
		return 0, fmt.Errorf("mongo delete user tasks: %w", err)
	}
	return res.DeletedCount, nil
}
