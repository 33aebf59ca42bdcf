package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"mediavault/internal/domain"
)

type TaskRepository struct {
	collection *mongo.Collection
}

type taskDoc struct {
	ID              string `bson:"_id"`
	MovieID         string `bson:"movieId"`
	Status          string `bson:"status"`
	BytesDownloaded int64  `bson:"bytesDownloaded"`
	TotalBytes      int64  `bson:"totalBytes"`
	ProgressPercent int    `bson:"progressPercent"`
	ErrorMessage    string `bson:"errorMessage,omitempty"`
	StartedAt       int64  `bson:"startedAt"`
	CompletedAt     int64  `bson:"completedAt,omitempty"`
	UpdatedAt       int64  `bson:"updatedAt"`
}

func NewTaskRepository(client *mongo.Client, dbName string) *TaskRepository {
	return &TaskRepository{collection: client.Database(dbName).Collection("download_tasks")}
}

func (r *TaskRepository) EnsureIndexes(ctx context.Context) error {
	if r == nil || r.collection == nil {
		return nil
	}
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "movieId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	}
	_, err := r.collection.Indexes().CreateMany(ctx, models)
	return err
}

func (r *TaskRepository) Upsert(ctx context.Context, t domain.DownloadTask) error {
	doc := toTaskDoc(t)
	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, opts)
	return err
}

// UpdateProgress writes one progress tick. Progress rows are advisory until
// the terminal upsert lands, so a lost tick is harmless.
func (r *TaskRepository) UpdateProgress(ctx context.Context, id domain.TaskID, p domain.TaskProgress) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": string(id)}, bson.M{"$set": bson.M{
		"bytesDownloaded": p.BytesDownloaded,
		"totalBytes":      p.TotalBytes,
		"progressPercent": p.ProgressPercent,
		"updatedAt":       time.Now().UTC().Unix(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *TaskRepository) GetByMovie(ctx context.Context, movieID domain.MovieID) (domain.DownloadTask, error) {
	var doc taskDoc
	if err := r.collection.FindOne(ctx, bson.M{"movieId": string(movieID)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.DownloadTask{}, domain.ErrNotFound
		}
		return domain.DownloadTask{}, err
	}
	return fromTaskDoc(doc), nil
}

func toTaskDoc(t domain.DownloadTask) taskDoc {
	var completedAt int64
	if !t.CompletedAt.IsZero() {
		completedAt = t.CompletedAt.Unix()
	}
	return taskDoc{
		ID:              string(t.ID),
		MovieID:         string(t.MovieID),
		Status:          string(t.Status),
		BytesDownloaded: t.BytesDownloaded,
		TotalBytes:      t.TotalBytes,
		ProgressPercent: t.ProgressPercent,
		ErrorMessage:    t.ErrorMessage,
		StartedAt:       t.StartedAt.Unix(),
		CompletedAt:     completedAt,
		UpdatedAt:       time.Now().UTC().Unix(),
	}
}

func fromTaskDoc(doc taskDoc) domain.DownloadTask {
	task := domain.DownloadTask{
		ID:              domain.TaskID(doc.ID),
		MovieID:         domain.MovieID(doc.MovieID),
		Status:          domain.TaskStatus(doc.Status),
		BytesDownloaded: doc.BytesDownloaded,
		TotalBytes:      doc.TotalBytes,
		ProgressPercent: doc.ProgressPercent,
		ErrorMessage:    doc.ErrorMessage,
		StartedAt:       timeFromUnix(doc.StartedAt),
	}
	if doc.CompletedAt > 0 {
		task.CompletedAt = timeFromUnix(doc.CompletedAt)
	}
	return task
}
