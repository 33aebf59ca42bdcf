package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"mediavault/internal/domain"
)

type CategoryRepository struct {
	collection *mongo.Collection
}

type categoryDoc struct {
	ID         string `bson:"_id"`
	Name       string `bson:"name"`
	RemotePath string `bson:"remotePath,omitempty"`
	SortOrder  int    `bson:"sortOrder"`
	CreatedAt  int64  `bson:"createdAt"`
	UpdatedAt  int64  `bson:"updatedAt"`
}

func NewCategoryRepository(client *mongo.Client, dbName string) *CategoryRepository {
	return &CategoryRepository{collection: client.Database(dbName).Collection("categories")}
}

func (r *CategoryRepository) EnsureIndexes(ctx context.Context) error {
	if r == nil || r.collection == nil {
		return nil
	}
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "remotePath", Value: 1}}},
	}
	_, err := r.collection.Indexes().CreateMany(ctx, models)
	return err
}

func (r *CategoryRepository) Create(ctx context.Context, c domain.Category) error {
	_, err := r.collection.InsertOne(ctx, toCategoryDoc(c))
	if err != nil && mongo.IsDuplicateKeyError(err) {
		return domain.ErrAlreadyExists
	}
	return err
}

func (r *CategoryRepository) Update(ctx context.Context, c domain.Category) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": string(c.ID)}, bson.M{"$set": toCategoryDoc(c)})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *CategoryRepository) Get(ctx context.Context, id domain.CategoryID) (domain.Category, error) {
	return r.findOne(ctx, bson.M{"_id": string(id)})
}

func (r *CategoryRepository) GetByRemotePath(ctx context.Context, remotePath string) (domain.Category, error) {
	return r.findOne(ctx, bson.M{"remotePath": remotePath})
}

func (r *CategoryRepository) GetByName(ctx context.Context, name string) (domain.Category, error) {
	return r.findOne(ctx, bson.M{"name": name})
}

func (r *CategoryRepository) List(ctx context.Context) ([]domain.Category, error) {
	opts := options.Find().SetSort(bson.D{{Key: "sortOrder", Value: 1}, {Key: "name", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []categoryDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	categories := make([]domain.Category, 0, len(docs))
	for _, doc := range docs {
		categories = append(categories, fromCategoryDoc(doc))
	}
	return categories, nil
}

func (r *CategoryRepository) findOne(ctx context.Context, filter bson.M) (domain.Category, error) {
	var doc categoryDoc
	if err := r.collection.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Category{}, domain.ErrNotFound
		}
		return domain.Category{}, err
	}
	return fromCategoryDoc(doc), nil
}

func toCategoryDoc(c domain.Category) categoryDoc {
	return categoryDoc{
		ID:         string(c.ID),
		Name:       c.Name,
		RemotePath: c.RemotePath,
		SortOrder:  c.SortOrder,
		CreatedAt:  c.CreatedAt.Unix(),
		UpdatedAt:  c.UpdatedAt.Unix(),
	}
}

func fromCategoryDoc(doc categoryDoc) domain.Category {
	return domain.Category{
		ID:         domain.CategoryID(doc.ID),
		Name:       doc.Name,
		RemotePath: doc.RemotePath,
		SortOrder:  doc.SortOrder,
		CreatedAt:  timeFromUnix(doc.CreatedAt),
		UpdatedAt:  timeFromUnix(doc.UpdatedAt),
	}
}
