// Package s3bucket stores encoded records as S3 objects. Each object
// carries the writer's structural id in its metadata so a reader can tell
// whether its own spec still matches the stored shape.
package s3bucket

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/hengadev/structwire"
	"github.com/hengadev/structwire/internal/reliability"
	"github.com/hengadev/structwire/protocol/compact"
)

// Object metadata keys. S3 returns user metadata keys in lower case.
const (
	MetaStruct       = "structwire-struct"
	MetaStructuralID = "structwire-structural-id"
	MetaProtocol     = "structwire-protocol"
	MetaEncoding     = "structwire-encoding"

	contentType = "application/x-structwire"
)

// DefaultMaxObjectSize bounds how much of an object Get reads, before and
// after decompression.
const DefaultMaxObjectSize = 64 << 20

var (
	// ErrNotFound is returned when the object key does not exist.
	ErrNotFound = errors.New("s3bucket: object not found")
	// ErrStoreUnavailable wraps failures talking to S3.
	ErrStoreUnavailable = errors.New("s3bucket: store unavailable")
)

// Encoding names the payload transformation applied before upload.
type Encoding string

const (
	EncodingNone Encoding = "none"
	EncodingZstd Encoding = "zstd"
)

// Client is the subset of the S3 API the store uses (allows mocking).
type Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Config holds configuration for a RecordStore.
type Config struct {
	// Bucket is required.
	Bucket string
	// Prefix is prepended to generated object keys.
	Prefix string
	// Region is used when AWSConfig is nil. If empty, the AWS default
	// chain (AWS_REGION, config files) applies.
	Region string
	// AWSConfig is an optional pre-configured AWS config.
	AWSConfig *aws.Config
	// Protocol defaults to the compact protocol.
	Protocol structwire.Protocol
	// Engine defaults to an engine with default options.
	Engine *structwire.Engine
	// Encoding defaults to EncodingZstd.
	Encoding Encoding
	// MaxObjectSize defaults to DefaultMaxObjectSize.
	MaxObjectSize int64
	// MaxAttempts bounds tries per S3 call; defaults to 3.
	MaxAttempts int
	// RetryDelay is the first backoff delay; defaults to 100ms.
	RetryDelay time.Duration
}

// RecordStore puts and gets encoded records. It is safe for concurrent
// use.
type RecordStore struct {
	client   Client
	bucket   string
	prefix   string
	protocol structwire.Protocol
	engine   *structwire.Engine
	encoding Encoding
	maxSize  int64
	retry    reliability.Policy
	encoder  *zstd.Encoder
	decoder  *zstd.Decoder
}

// Stored is a record read back from the store.
type Stored struct {
	Key    string
	Record *structwire.Record
	// StructuralID is the id the writer recorded; zero when the object
	// carries none.
	StructuralID uint64
	// Compatible reports whether StructuralID equals the reader's spec.
	// Records are decoded either way; drift is absorbed by the engine.
	Compatible bool
}

// New creates a store backed by an S3 client built from the AWS config.
func New(ctx context.Context, cfg Config) (*RecordStore, error) {
	var awsConfig aws.Config
	if cfg.AWSConfig != nil {
		awsConfig = *cfg.AWSConfig
	} else {
		opts := []func(*config.LoadOptions) error{}
		if cfg.Region != "" {
			opts = append(opts, config.WithRegion(cfg.Region))
		}
		var err error
		awsConfig, err = config.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to load AWS config: %w", ErrStoreUnavailable, err)
		}
	}
	return NewWithClient(newSDKClient(awsConfig), cfg)
}

// newSDKClient builds an S3 client with the SDK retryer limited to one
// attempt; RecordStore retries calls itself.
func newSDKClient(awsConfig aws.Config) *s3.Client {
	return s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		o.RetryMaxAttempts = 1
	})
}

// NewWithClient creates a store on top of an existing client.
func NewWithClient(client Client, cfg Config) (*RecordStore, error) {
	if client == nil {
		return nil, fmt.Errorf("s3 client cannot be nil")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket cannot be empty")
	}

	store := &RecordStore{
		client:   client,
		bucket:   cfg.Bucket,
		prefix:   cfg.Prefix,
		protocol: cfg.Protocol,
		engine:   cfg.Engine,
		encoding: cfg.Encoding,
		maxSize:  cfg.MaxObjectSize,
		retry: reliability.Policy{
			MaxAttempts:  cfg.MaxAttempts,
			InitialDelay: cfg.RetryDelay,
			Retryable:    retryable,
		},
	}
	if store.protocol == nil {
		store.protocol = compact.Protocol
	}
	if store.engine == nil {
		engine, err := structwire.NewEngine()
		if err != nil {
			return nil, err
		}
		store.engine = engine
	}
	if store.encoding == "" {
		store.encoding = EncodingZstd
	}
	if store.encoding != EncodingNone && store.encoding != EncodingZstd {
		return nil, fmt.Errorf("unsupported encoding '%s'", store.encoding)
	}
	if store.maxSize <= 0 {
		store.maxSize = DefaultMaxObjectSize
	}

	var err error
	store.encoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("zstd encoder initialization failed: %w", err)
	}
	store.decoder, err = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(uint64(store.maxSize)))
	if err != nil {
		store.encoder.Close()
		return nil, fmt.Errorf("zstd decoder initialization failed: %w", err)
	}
	return store, nil
}

// Close releases the compression state.
func (s *RecordStore) Close() error {
	s.decoder.Close()
	return s.encoder.Close()
}

// Put encodes rec and uploads it under a fresh key, which it returns.
func (s *RecordStore) Put(ctx context.Context, rec *structwire.Record) (string, error) {
	if rec == nil {
		return "", fmt.Errorf("%w: cannot store a nil record", structwire.ErrInvalidValue)
	}
	key := path.Join(s.prefix, rec.Spec().Name(), uuid.NewString())
	return key, s.PutKey(ctx, key, rec)
}

// PutKey encodes rec and uploads it under key.
func (s *RecordStore) PutKey(ctx context.Context, key string, rec *structwire.Record) error {
	if rec == nil {
		return fmt.Errorf("%w: cannot store a nil record", structwire.ErrInvalidValue)
	}
	data, err := s.engine.Marshal(ctx, s.protocol, rec)
	if err != nil {
		return err
	}
	if s.encoding == EncodingZstd {
		data = s.encoder.EncodeAll(data, nil)
	}

	spec := rec.Spec()
	metadata := map[string]string{
		MetaStruct:       spec.Name(),
		MetaStructuralID: formatID(spec.StructuralID()),
		MetaProtocol:     s.protocol.Name(),
		MetaEncoding:     string(s.encoding),
	}
	err = reliability.Do(ctx, s.retry, func(ctx context.Context) error {
		_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(data),
			ContentType: aws.String(contentType),
			Metadata:    metadata,
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: failed to upload s3://%s/%s: %w", ErrStoreUnavailable, s.bucket, key, err)
	}
	return nil
}

// Get downloads key and decodes it as spec.
func (s *RecordStore) Get(ctx context.Context, spec *structwire.StructSpec, key string) (*Stored, error) {
	if spec == nil {
		return nil, fmt.Errorf("%w: cannot read into a nil specification", structwire.ErrInvalidSpec)
	}
	var (
		data []byte
		meta map[string]string
	)
	err := reliability.Do(ctx, s.retry, func(ctx context.Context) error {
		out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return err
		}
		defer out.Body.Close()
		data, err = io.ReadAll(io.LimitReader(out.Body, s.maxSize+1))
		meta = out.Metadata
		return err
	})
	if err != nil {
		var missing *types.NoSuchKey
		if errors.As(err, &missing) {
			return nil, fmt.Errorf("%w: s3://%s/%s", ErrNotFound, s.bucket, key)
		}
		return nil, fmt.Errorf("%w: failed to download s3://%s/%s: %w", ErrStoreUnavailable, s.bucket, key, err)
	}
	if int64(len(data)) > s.maxSize {
		return nil, fmt.Errorf("%w: object %s exceeds %d bytes", structwire.ErrMalformedStream, key, s.maxSize)
	}

	if name := meta[MetaProtocol]; name != "" && name != s.protocol.Name() {
		return nil, fmt.Errorf("object %s was written with protocol '%s', store reads '%s'", key, name, s.protocol.Name())
	}
	switch Encoding(meta[MetaEncoding]) {
	case EncodingZstd:
		data, err = s.decoder.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to decompress %s: %w", structwire.ErrMalformedStream, key, err)
		}
	case EncodingNone, "":
	default:
		return nil, fmt.Errorf("object %s uses unsupported encoding '%s'", key, meta[MetaEncoding])
	}

	rec, err := s.engine.Unmarshal(ctx, s.protocol, spec, data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}

	stored := &Stored{Key: key, Record: rec}
	if raw := meta[MetaStructuralID]; raw != "" {
		id, err := strconv.ParseUint(raw, 16, 64)
		if err != nil {
			return nil, fmt.Errorf("object %s carries invalid structural id '%s'", key, raw)
		}
		stored.StructuralID = id
		stored.Compatible = id == spec.StructuralID()
	}
	return stored, nil
}

// retryable leaves out missing keys, cancellation and client errors.
func retryable(err error) bool {
	var missing *types.NoSuchKey
	if errors.As(err, &missing) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var status interface{ HTTPStatusCode() int }
	if errors.As(err, &status) {
		return reliability.IsRetryableStatusCode(status.HTTPStatusCode())
	}
	return true
}

func formatID(id uint64) string {
	return fmt.Sprintf("%016x", id)
}
