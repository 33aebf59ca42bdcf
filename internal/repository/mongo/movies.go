package mongo

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"mediavault/internal/domain"
)

type MovieRepository struct {
	collection *mongo.Collection
}

type movieDoc struct {
	ID          string `bson:"_id"`
	Title       string `bson:"title"`
	Description string `bson:"description,omitempty"`
	Year        int    `bson:"year,omitempty"`
	DurationSec int    `bson:"durationSec,omitempty"`
	RemoteRef   string `bson:"remoteRef"`
	RemotePath  string `bson:"remotePath"`
	LocalPath   string `bson:"localPath,omitempty"`
	FileSize    int64  `bson:"fileSize,omitempty"`
	ContentType string `bson:"contentType,omitempty"`
	Status      string `bson:"status"`
	CategoryID  string `bson:"categoryId,omitempty"`
	CreatedAt   int64  `bson:"createdAt"`
	UpdatedAt   int64  `bson:"updatedAt"`
}

func Connect(ctx context.Context, uri string, extra ...*options.ClientOptions) (*mongo.Client, error) {
	opts := append([]*options.ClientOptions{options.Client().ApplyURI(uri)}, extra...)
	client, err := mongo.Connect(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func NewMovieRepository(client *mongo.Client, dbName string) *MovieRepository {
	return &MovieRepository{collection: client.Database(dbName).Collection("movies")}
}

func (r *MovieRepository) EnsureIndexes(ctx context.Context) error {
	if r == nil || r.collection == nil {
		return nil
	}
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "remotePath", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "categoryId", Value: 1}}},
		{Keys: bson.D{{Key: "updatedAt", Value: -1}}},
	}
	_, err := r.collection.Indexes().CreateMany(ctx, models)
	return err
}

func (r *MovieRepository) Create(ctx context.Context, m domain.Movie) error {
	_, err := r.collection.InsertOne(ctx, toMovieDoc(m))
	if err != nil && mongo.IsDuplicateKeyError(err) {
		return domain.ErrAlreadyExists
	}
	return err
}

func (r *MovieRepository) Update(ctx context.Context, m domain.Movie) error {
	doc := toMovieDoc(m)
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": string(m.ID)}, bson.M{"$set": doc})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *MovieRepository) Get(ctx context.Context, id domain.MovieID) (domain.Movie, error) {
	var doc movieDoc
	if err := r.collection.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Movie{}, domain.ErrNotFound
		}
		return domain.Movie{}, err
	}
	return fromMovieDoc(doc), nil
}

func (r *MovieRepository) GetByRemotePath(ctx context.Context, remotePath string) (domain.Movie, error) {
	var doc movieDoc
	if err := r.collection.FindOne(ctx, bson.M{"remotePath": remotePath}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Movie{}, domain.ErrNotFound
		}
		return domain.Movie{}, err
	}
	return fromMovieDoc(doc), nil
}

func (r *MovieRepository) List(ctx context.Context, filter domain.MovieFilter) ([]domain.Movie, error) {
	query := bson.M{}
	if filter.Status != nil {
		query["status"] = string(*filter.Status)
	}
	if filter.CategoryID != "" {
		query["categoryId"] = string(filter.CategoryID)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		query["title"] = bson.M{
			"$regex":   regexp.QuoteMeta(search),
			"$options": "i",
		}
	}

	sortBy := strings.TrimSpace(filter.SortBy)
	field, ok := movieSortField(sortBy)
	if !ok {
		field = "updatedAt"
	}
	direction := -1
	if filter.SortOrder == domain.SortAsc {
		direction = 1
	}

	opts := options.Find().SetSort(bson.D{{Key: field, Value: direction}})
	if filter.Offset > 0 {
		opts.SetSkip(int64(filter.Offset))
	}
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []movieDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	movies := make([]domain.Movie, 0, len(docs))
	for _, doc := range docs {
		movies = append(movies, fromMovieDoc(doc))
	}
	return movies, nil
}

func (r *MovieRepository) Delete(ctx context.Context, id domain.MovieID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": string(id)})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func toMovieDoc(m domain.Movie) movieDoc {
	return movieDoc{
		ID:          string(m.ID),
		Title:       m.Title,
		Description: m.Description,
		Year:        m.Year,
		DurationSec: m.DurationSec,
		RemoteRef:   m.RemoteRef,
		RemotePath:  m.RemotePath,
		LocalPath:   m.LocalPath,
		FileSize:    m.FileSize,
		ContentType: m.ContentType,
		Status:      string(m.Status),
		CategoryID:  string(m.CategoryID),
		CreatedAt:   m.CreatedAt.Unix(),
		UpdatedAt:   m.UpdatedAt.Unix(),
	}
}

func fromMovieDoc(doc movieDoc) domain.Movie {
	return domain.Movie{
		ID:          domain.MovieID(doc.ID),
		Title:       doc.Title,
		Description: doc.Description,
		Year:        doc.Year,
		DurationSec: doc.DurationSec,
		RemoteRef:   doc.RemoteRef,
		RemotePath:  doc.RemotePath,
		LocalPath:   doc.LocalPath,
		FileSize:    doc.FileSize,
		ContentType: doc.ContentType,
		Status:      domain.MovieStatus(doc.Status),
		CategoryID:  domain.CategoryID(doc.CategoryID),
		CreatedAt:   timeFromUnix(doc.CreatedAt),
		UpdatedAt:   timeFromUnix(doc.UpdatedAt),
	}
}

func timeFromUnix(value int64) time.Time {
	return time.Unix(value, 0).UTC()
}

func movieSortField(sortBy string) (string, bool) {
	switch sortBy {
	case "title":
		return "title", true
	case "year":
		return "year", true
	case "createdAt":
		return "createdAt", true
	case "updatedAt":
		return "updatedAt", true
	case "fileSize":
		return "fileSize", true
	default:
		return "", false
	}
}
