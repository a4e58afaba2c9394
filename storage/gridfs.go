package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GridFSStorage lưu object trong MongoDB GridFS, key chính là filename.
type GridFSStorage struct {
	client *mongo.Client
	bucket *gridfs.Bucket
}

func NewGridFSStorage(ctx context.Context, uri, database, bucketName string) (*GridFSStorage, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	if bucketName == "" {
		bucketName = "uploads"
	}
	bucket, err := gridfs.NewBucket(client.Database(database), options.GridFSBucket().SetName(bucketName))
	if err != nil {
		return nil, fmt.Errorf("gridfs bucket: %w", err)
	}
	return &GridFSStorage{client: client, bucket: bucket}, nil
}

func (s *GridFSStorage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	opts := options.GridFSUpload().SetMetadata(bson.D{{Key: "contentType", Value: contentType}, {Key: "size", Value: size}})
	if _, err := s.bucket.UploadFromStream(key, r, opts); err != nil {
		return "", fmt.Errorf("gridfs upload: %w", err)
	}
	return "", nil
}

func (s *GridFSStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	stream, err := s.bucket.OpenDownloadStreamByName(key)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("gridfs download: %w", err)
	}
	return stream, nil
}

func (s *GridFSStorage) Delete(ctx context.Context, key string) error {
	cursor, err := s.bucket.Find(bson.M{"filename": key})
	if err != nil {
		return fmt.Errorf("gridfs find: %w", err)
	}
	defer cursor.Close(ctx)

	var files []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &files); err != nil {
		return err
	}
	for _, f := range files {
		if err := s.bucket.Delete(f.ID); err != nil && !errors.Is(err, gridfs.ErrFileNotFound) {
			return fmt.Errorf("gridfs delete: %w", err)
		}
	}
	return nil
}

func (s *GridFSStorage) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
