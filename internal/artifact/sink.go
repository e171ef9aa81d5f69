package artifact

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gabriel-vasile/mimetype"
	"github.com/go-git/go-billy/v5"

	"mdpress/internal/errors"
)

// maxCollisions bounds the "name (n).ext" search.
const maxCollisions = 1000

// Sink stores a finished artifact. Save never overwrites: when name is taken
// the artifact is stored as "name (1).ext", "name (2).ext" and so on. It
// returns where the artifact ended up.
type Sink interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
}

// candidate returns name for n == 0 and "stem (n).ext" otherwise.
func candidate(name string, n int) string {
	if n == 0 {
		return name
	}
	ext := path.Ext(name)
	return fmt.Sprintf("%s (%d)%s", strings.TrimSuffix(name, ext), n, ext)
}

// DirSink saves into a directory of a billy.Filesystem.
type DirSink struct {
	fs  billy.Filesystem
	dir string
}

// NewDirSink creates a sink writing into dir on fs.
func NewDirSink(fs billy.Filesystem, dir string) *DirSink {
	return &DirSink{fs: fs, dir: dir}
}

func (d *DirSink) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	if err := d.fs.MkdirAll(d.dir, 0755); err != nil {
		return "", errors.NewFileError("cannot create output directory", d.dir, errors.FileAccessDenied, err)
	}

	for n := 0; n < maxCollisions; n++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		target := d.fs.Join(d.dir, candidate(name, n))
		f, err := d.fs.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if os.IsExist(err) {
			continue
		}
		if err != nil {
			return "", errors.NewFileError("cannot create artifact", target, errors.FileAccessDenied, err)
		}

		_, err = io.Copy(f, r)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = d.fs.Remove(target)
			return "", errors.NewFileError("cannot write artifact", target, errors.FileAccessDenied, err)
		}
		return target, nil
	}
	return "", errors.NewFileError("too many artifacts with the same name", d.fs.Join(d.dir, name), errors.InvalidPath, nil)
}

// S3API is the subset of the S3 client used by S3Sink.
type S3API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Sink uploads artifacts under a bucket prefix.
type S3Sink struct {
	client S3API
	bucket string
	prefix string
}

// NewS3Sink creates a sink for s3://bucket/prefix.
func NewS3Sink(client S3API, bucket, prefix string) *S3Sink {
	prefix = strings.TrimPrefix(prefix, "/")
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &S3Sink{client: client, bucket: bucket, prefix: prefix}
}

func (s *S3Sink) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read artifact: %w", err)
	}

	key, err := s.freeKey(ctx, name)
	if err != nil {
		return "", err
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(mimetype.Detect(data).String()),
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}

func (s *S3Sink) freeKey(ctx context.Context, name string) (string, error) {
	for n := 0; n < maxCollisions; n++ {
		key := s.prefix + candidate(name, n)
		_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		var notFound *s3types.NotFound
		switch {
		case errors.As(err, &notFound):
			return key, nil
		case err != nil:
			return "", fmt.Errorf("head object %s: %w", key, err)
		}
	}
	return "", errors.NewFileError("too many artifacts with the same name", s.prefix+name, errors.InvalidPath, nil)
}
