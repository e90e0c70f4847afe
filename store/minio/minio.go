package minio

import (
    "bytes"
    "context"
    "fmt"
    "io"
    "path"

    "github.com/minio/minio-go/v7"
    "github.com/minio/minio-go/v7/pkg/credentials"

    "git.wyat.me/zwagit/object"
    "git.wyat.me/zwagit/store"
)

// DefaultPrefix keys objects with the loose layout, objects/<id[:2]>/<id[2:]>.
const DefaultPrefix = "objects"

type MinioStore struct {
    client *minio.Client
    bucket string
    prefix string
}

func New(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*MinioStore, error) {
    client, err := minio.New(endpoint, &minio.Options{
        Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
        Secure: useSSL,
    })
    if err != nil {
        return nil, store.Unavailable("create minio client", err)
    }

    ctx := context.Background()
    exists, err := client.BucketExists(ctx, bucket)
    if err != nil {
        return nil, store.Unavailable("check bucket", err)
    }
    if !exists {
        if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
            return nil, store.Unavailable("create bucket", err)
        }
    }

    return &MinioStore{client: client, bucket: bucket, prefix: DefaultPrefix}, nil
}

// WithPrefix returns a store sharing the client but keyed under prefix.
func (s *MinioStore) WithPrefix(prefix string) *MinioStore {
    return &MinioStore{client: s.client, bucket: s.bucket, prefix: prefix}
}

// Key returns the bucket key for a valid identifier.
func (s *MinioStore) Key(id string) string {
    shard, file := store.ShardPath(id)
    return path.Join(s.prefix, shard, file)
}

func isNoSuchKey(err error) bool {
    return minio.ToErrorResponse(err).Code == "NoSuchKey"
}

func (s *MinioStore) Put(obj *object.Object) (string, error) {
    envelope, id, err := store.Seal(obj)
    if err != nil {
        return "", err
    }

    exists, err := s.Exists(id)
    if err != nil {
        return "", err
    }
    if exists {
        return id, nil
    }

    // PutObject is atomic on the server side; a reader never sees a partial key.
    _, err = s.client.PutObject(
        context.Background(),
        s.bucket,
        s.Key(id),
        bytes.NewReader(envelope),
        int64(len(envelope)),
        minio.PutObjectOptions{ContentType: "application/octet-stream"},
    )
    if err != nil {
        return "", store.Unavailable("put object", err)
    }

    return id, nil
}

func (s *MinioStore) Get(id string) ([]byte, error) {
    if err := store.ValidateID(id); err != nil {
        return nil, err
    }

    obj, err := s.client.GetObject(
        context.Background(),
        s.bucket,
        s.Key(id),
        minio.GetObjectOptions{},
    )
    if err != nil {
        return nil, store.Unavailable("get object", err)
    }
    defer obj.Close()

    envelope, err := io.ReadAll(obj)
    if isNoSuchKey(err) {
        return nil, store.NotFound(id)
    }
    if err != nil {
        return nil, store.Unavailable("read object", err)
    }

    return envelope, nil
}

func (s *MinioStore) Exists(id string) (bool, error) {
    if err := store.ValidateID(id); err != nil {
        return false, err
    }

    _, err := s.client.StatObject(
        context.Background(),
        s.bucket,
        s.Key(id),
        minio.StatObjectOptions{},
    )
    if err != nil {
        if isNoSuchKey(err) {
            return false, nil
        }
        return false, store.Unavailable("stat object", err)
    }
    return true, nil
}

// Flush removes every object under the store's prefix. Used after
// benchmarks to avoid leaving test data in the bucket.
func (s *MinioStore) Flush() error {
    ctx, cancel := context.WithCancel(context.Background())
    defer cancel()

    // listErr is written before objectsCh is closed and read only after
    // RemoveObjects has drained it.
    var listErr error
    objectsCh := make(chan minio.ObjectInfo)
    go func() {
        defer close(objectsCh)
        opts := minio.ListObjectsOptions{Prefix: s.prefix + "/", Recursive: true}
        for obj := range s.client.ListObjects(ctx, s.bucket, opts) {
            if obj.Err != nil {
                listErr = obj.Err
                return
            }
            select {
            case objectsCh <- obj:
            case <-ctx.Done():
                return
            }
        }
    }()

    for result := range s.client.RemoveObjects(ctx, s.bucket, objectsCh, minio.RemoveObjectsOptions{}) {
        if result.Err != nil {
            // cancel unblocks the lister
            return fmt.Errorf("remove object %s: %w", result.ObjectName, result.Err)
        }
    }
    if listErr != nil {
        return fmt.Errorf("list objects: %w", listErr)
    }

    return nil
}
