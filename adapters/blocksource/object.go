package blocksource

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Skryldev/image-engine/core"
	apperrors "github.com/Skryldev/image-engine/errors"
	"github.com/Skryldev/image-engine/utils"
)

// ObjectClient defines the minimal object-store interface used by the
// adapter.  This allows injection of real aws-sdk-go-v2 clients or test
// doubles.
type ObjectClient interface {
	GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	GetObjectRange(ctx context.Context, bucket, key string, offset int64, length int) (io.ReadCloser, error)
	HeadObject(ctx context.Context, bucket, key string) (size int64, exists bool, err error)
}

// Object is a BlockSource backed by an S3-compatible object store.
// Inject a real ObjectClient built with aws-sdk-go-v2 in production.
type Object struct {
	client ObjectClient
	bucket string
}

// NewObject creates an object-store block source.  client must not be nil.
func NewObject(client ObjectClient, bucket string) (*Object, error) {
	if client == nil {
		return nil, fmt.Errorf("object source: client must not be nil")
	}
	return &Object{client: client, bucket: bucket}, nil
}

func (o *Object) Exists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, apperrors.Wrap(apperrors.CategoryStorage, "object.exists", err)
	}
	_, exists, err := o.client.HeadObject(ctx, o.bucket, path)
	if err != nil {
		return false, apperrors.Transient("object.exists", err)
	}
	return exists, nil
}

func (o *Object) Size(ctx context.Context, path string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, apperrors.Wrap(apperrors.CategoryStorage, "object.size", err)
	}
	size, exists, err := o.client.HeadObject(ctx, o.bucket, path)
	if err != nil {
		return 0, apperrors.Transient("object.size", err)
	}
	if !exists {
		return 0, notFound("object.size", path)
	}
	return size, nil
}

func (o *Object) ReadAll(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryStorage, "object.read", err)
	}
	rc, err := o.client.GetObject(ctx, o.bucket, path)
	if err != nil {
		return nil, apperrors.Transient("object.read", err)
	}
	defer rc.Close()
	buf, err := utils.DrainReader(ctx, rc, 0)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryStorage, "object.read.drain", err)
	}
	data := utils.CloneBytes(buf.Bytes())
	utils.ReleaseBuffer(buf)
	return data, nil
}

func (o *Object) ReadRange(ctx context.Context, path string, offset int64, length int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryStorage, "object.read_range", err)
	}
	if offset < 0 || length < 0 {
		return nil, apperrors.New(apperrors.CategoryInput, "object.read_range", apperrors.ErrOutOfRange)
	}
	if length == 0 {
		return nil, nil
	}
	rc, err := o.client.GetObjectRange(ctx, o.bucket, path, offset, length)
	if err != nil {
		return nil, apperrors.Transient("object.read_range", err)
	}
	defer rc.Close()
	buf, err := utils.DrainReader(ctx, rc, length)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryStorage, "object.read_range.drain", err)
	}
	data := utils.CloneBytes(buf.Bytes())
	utils.ReleaseBuffer(buf)
	return data, nil
}

func (o *Object) Stream(ctx context.Context, path string, chunkSize int, fn core.StreamFunc) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "object.stream", err)
	}
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	rc, err := o.client.GetObject(ctx, o.bucket, path)
	if err != nil {
		return apperrors.Transient("object.stream", err)
	}
	defer rc.Close()

	buf := make([]byte, chunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return apperrors.Wrap(apperrors.CategoryStorage, "object.stream", err)
		}
		n, err := io.ReadFull(rc, buf)
		if n > 0 {
			if cbErr := fn(buf[:n]); cbErr != nil {
				if errors.Is(cbErr, apperrors.ErrStopStream) {
					return nil
				}
				return apperrors.Wrap(apperrors.CategoryStorage, "object.stream.callback", cbErr)
			}
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil
		}
		if err != nil {
			return apperrors.Wrap(apperrors.CategoryStorage, "object.stream.read", err)
		}
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Integration guide: wiring aws-sdk-go-v2
// ──────────────────────────────────────────────────────────────────────────────
//
//  import (
//      "github.com/aws/aws-sdk-go-v2/config"
//      "github.com/aws/aws-sdk-go-v2/service/s3"
//  )
//
//  func NewRealObjectClient(region string) (ObjectClient, error) {
//      awsCfg, _ := config.LoadDefaultConfig(context.Background(),
//          config.WithRegion(region),
//      )
//      return &awsWrapper{client: s3.NewFromConfig(awsCfg)}, nil
//  }
//
//  type awsWrapper struct{ client *s3.Client }
//
//  func (w *awsWrapper) GetObject(...) (io.ReadCloser, error) { ... }
//  func (w *awsWrapper) GetObjectRange(...) uses a "bytes=start-end" Range header.
//  etc.
