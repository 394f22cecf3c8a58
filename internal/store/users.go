package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ayush/task-manager-api/internal/models"
)

// CreateUser inserts u and sets its id and timestamps.
func (s *MongoStore) CreateUser(ctx context.Context, u *models.User) error {
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	if u.Tokens == nil {
		u.Tokens = []models.AuthToken{}
	}
	res, err := s.users.InsertOne(ctx, u)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}
	u.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (s *MongoStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	return s.findUser(ctx, bson.M{"_id": oid})
}

func (s *MongoStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"email": email})
}

// GetUserByToken returns the user with id only if token is in its token list.
func (s *MongoStore) GetUserByToken(ctx context.Context, id, token string) (*models.User, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	return s.findUser(ctx, bson.M{"_id": oid, "tokens.token": token})
}

func (s *MongoStore) findUser(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	if err := s.users.FindOne(ctx, filter).Decode(&u); err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *MongoStore) ListUsers(ctx context.Context) ([]models.User, error) {
	opts := options.Find().SetProjection(bson.M{"avatar": 0, "tokens": 0, "password": 0})
	cur, err := s.users.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var users []models.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateUser writes the profile fields of u. The token list and avatar are
// left untouched.
func (s *MongoStore) UpdateUser(ctx context.Context, u *models.User) error {
	u.UpdatedAt = time.Now().UTC()
	res, err := s.users.UpdateByID(ctx, u.ID, bson.M{"$set": bson.M{
		"name":      u.Name,
		"email":     u.Email,
		"password":  u.Password,
		"age":       u.Age,
		"updatedAt": u.UpdatedAt,
	}})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteUser removes the user and returns the deleted document.
func (s *MongoStore) DeleteUser(ctx context.Context, id string) (*models.User, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var u models.User
	if err := s.users.FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(&u); err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// AddToken appends t to the user's token list atomically.
func (s *MongoStore) AddToken(ctx context.Context, id string, t models.AuthToken) error {
	return s.updateTokens(ctx, id, bson.M{"$push": bson.M{"tokens": t}})
}

// RemoveToken pulls token from the user's list; an absent token is not an error.
func (s *MongoStore) RemoveToken(ctx context.Context, id, token string) error {
	return s.updateTokens(ctx, id, bson.M{"$pull": bson.M{"tokens": bson.M{"token": token}}})
}

func (s *MongoStore) ClearTokens(ctx context.Context, id string) error {
	return s.updateTokens(ctx, id, bson.M{"$set": bson.M{"tokens": []models.AuthToken{}}})
}

func (s *MongoStore) updateTokens(ctx context.Context, id string, update bson.M) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	res, err := s.users.UpdateByID(ctx, oid, update)
	if err != nil {
		return fmt.Errorf("update tokens: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// PutAvatar stores data inline on the user document.
func (s *MongoStore) PutAvatar(ctx context.Context, id string, data []byte) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	res, err := s.users.UpdateByID(ctx, oid, bson.M{"$set": bson.M{"avatar": data, "updatedAt": time.Now().UTC()}})
	if err != nil {
		return fmt.Errorf("put avatar: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// GetAvatar returns the inline avatar, or ErrNotFound if the user has none.
func (s *MongoStore) GetAvatar(ctx context.Context, id string) ([]byte, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var doc struct {
		Avatar []byte `bson:"avatar"`
	}
	opts := options.FindOne().SetProjection(bson.M{"avatar": 1})
	if err := s.users.FindOne(ctx, bson.M{"_id": oid}, opts).Decode(&doc); err != nil {
		return nil, notFound(err)
	}
	if len(doc.Avatar) == 0 {
		return nil, ErrNotFound
	}
	return doc.Avatar, nil
}

func (s *MongoStore) DeleteAvatar(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	_, err = s.users.UpdateByID(ctx, oid, bson.M{
		"$unset": bson.M{"avatar": ""},
		"$set":   bson.M{"updatedAt": time.Now().UTC()},
	})
	return err
}
