package traverse

import (
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"mdpress/pkg/types"
)

// S3API is the subset of the S3 client used to walk a bucket.
type S3API interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Entry treats keys under a prefix as a directory tree, using "/" as the
// separator. Objects are files and common prefixes are directories.
type S3Entry struct {
	client   S3API
	bucket   string
	key      string
	size     int64
	dir      bool
	pageSize int32
}

// NewS3Root returns the directory entry for s3://bucket/prefix. An empty
// prefix is the bucket root.
func NewS3Root(client S3API, bucket, prefix string, pageSize int) *S3Entry {
	prefix = strings.TrimPrefix(prefix, "/")
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	if pageSize <= 0 || pageSize > 1000 {
		pageSize = 1000
	}
	return &S3Entry{client: client, bucket: bucket, key: prefix, dir: true, pageSize: int32(pageSize)}
}

func (e *S3Entry) Name() string {
	name := path.Base(strings.TrimSuffix(e.key, "/"))
	if name == "." || name == "/" || name == "" {
		return e.bucket
	}
	return name
}

func (e *S3Entry) Kind() Kind {
	if e.dir {
		return KindDir
	}
	return KindFile
}

// Key returns the object key, or the prefix for directories.
func (e *S3Entry) Key() string {
	return e.key
}

// File downloads the object.
func (e *S3Entry) File(ctx context.Context) (types.FileRef, error) {
	if e.dir {
		return nil, fmt.Errorf("s3://%s/%s is a prefix", e.bucket, e.key)
	}
	out, err := e.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(e.bucket),
		Key:    aws.String(e.key),
	})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", e.key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", e.key, err)
	}
	return &types.MemoryFile{FileName: e.Name(), Data: data}, nil
}

// Reader returns one ListObjectsV2 page per batch.
func (e *S3Entry) Reader() BatchReader {
	return &s3Reader{entry: e}
}

type s3Reader struct {
	entry *S3Entry
	token *string
	done  bool
}

func (r *s3Reader) ReadBatch(ctx context.Context) ([]Entry, error) {
	e := r.entry
	// A page may hold only the prefix's own marker object; keep paging so an
	// empty batch is returned only when the listing is exhausted.
	for !r.done {
		out, err := e.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(e.bucket),
			Prefix:            aws.String(e.key),
			Delimiter:         aws.String("/"),
			MaxKeys:           aws.Int32(e.pageSize),
			ContinuationToken: r.token,
		})
		if err != nil {
			return nil, fmt.Errorf("list objects page: %w", err)
		}
		r.token = out.NextContinuationToken
		r.done = !aws.ToBool(out.IsTruncated) || r.token == nil

		batch := make([]Entry, 0, len(out.CommonPrefixes)+len(out.Contents))
		for _, p := range out.CommonPrefixes {
			batch = append(batch, &S3Entry{
				client:   e.client,
				bucket:   e.bucket,
				key:      aws.ToString(p.Prefix),
				dir:      true,
				pageSize: e.pageSize,
			})
		}
		for _, obj := range out.Contents {
			key := aws.ToString(obj.Key)
			if key == e.key || strings.HasSuffix(key, "/") {
				continue
			}
			batch = append(batch, &S3Entry{
				client:   e.client,
				bucket:   e.bucket,
				key:      key,
				size:     aws.ToInt64(obj.Size),
				pageSize: e.pageSize,
			})
		}
		if len(batch) > 0 {
			sort.SliceStable(batch, func(i, j int) bool {
				return batch[i].(*S3Entry).key < batch[j].(*S3Entry).key
			})
			return batch, nil
		}
	}
	return nil, nil
}
