package collect

import (
	"benritz/bonds/internal/types"
	"path/filepath"
	"time"

	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/parquet-go/parquet-go"
)

var (
	ErrInvalidRow = fmt.Errorf("invalid row")
)

type CollectedQuote struct {
	Quote *types.Quote
	Err   error
}

// SetError keeps the first error seen for the quote.
func (c *CollectedQuote) SetError(err error) {
	if c.Err == nil {
		c.Err = err
	}
}

type CollectedQuotes struct {
	Quotes         []*types.Quote
	Failures       []*CollectedQuote
	Source         string
	SettlementDate time.Time
}

func (c *CollectedQuotes) AddQuote(cq *CollectedQuote) {
	if cq.Err == nil {
		c.Quotes = append(c.Quotes, cq.Quote)
	} else {
		c.Failures = append(c.Failures, cq)
	}
}

func NewCollectedQuotes(source string, date time.Time) *CollectedQuotes {
	return &CollectedQuotes{
		Source:         source,
		SettlementDate: date,
		Quotes:         []*types.Quote{},
		Failures:       []*CollectedQuote{},
	}
}

type Collector interface {
	Collect(ctx context.Context, date time.Time) (*CollectedQuotes, error)
	Source() string
}

// Batch is a set of analysed bonds that is stored as a single parquet file.
type Batch struct {
	Source         string
	SettlementDate time.Time
	Records        []Record
}

func writeRecords(records []Record, output io.Writer) error {
	writer := parquet.NewGenericWriter[Record](output)

	if _, err := writer.Write(records); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write records: %w", err)
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}

	return nil
}

// ReadRecords loads a parquet file written by StoreToPath.
func ReadRecords(path string) ([]Record, error) {
	return parquet.ReadFile[Record](path)
}

func datePath(date time.Time, sep string) string {
	return fmt.Sprintf("%04d%s%02d%s%02d", date.UTC().Year(), sep, date.UTC().Month(), sep, date.UTC().Day())
}

// StoreToPath writes the batch to basepath/YYYY/MM/DD/<source>.parquet.
func StoreToPath(ctx context.Context, batch *Batch, basepath string) (string, error) {
	path := filepath.Join(basepath, datePath(batch.SettlementDate, string(filepath.Separator)))

	if err := os.MkdirAll(path, os.ModePerm); err != nil {
		return "", err
	}

	outPath := filepath.Join(path, batch.Source+".parquet")

	file, err := os.Create(outPath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	if err := writeRecords(batch.Records, file); err != nil {
		return "", err
	}

	return outPath, nil
}

type S3Path struct {
	Bucket string
	Prefix string
}

func (p *S3Path) String() string {
	if p.Prefix == "" {
		return "s3://" + p.Bucket
	}
	return "s3://" + p.Bucket + "/" + p.Prefix
}

func ParseS3(path string) (*S3Path, error) {
	if !strings.HasPrefix(path, "s3://") {
		return nil, fmt.Errorf("path must start with s3://")
	}

	path = strings.TrimPrefix(path, "s3://")
	bucket, prefix, _ := strings.Cut(path, "/")

	if bucket == "" {
		return nil, fmt.Errorf("missing bucket in s3 path")
	}

	return &S3Path{
		Bucket: bucket,
		Prefix: strings.TrimSuffix(prefix, "/"),
	}, nil
}

// ObjectPutter is the part of the S3 client used to upload batches.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

func StoreToS3(ctx context.Context, batch *Batch, client ObjectPutter, dst *S3Path) (string, error) {
	tmp, err := os.CreateTemp("", "bonds-*.parquet")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer tmp.Close()
	defer os.Remove(tmp.Name())

	if err := writeRecords(batch.Records, tmp); err != nil {
		return "", err
	}

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("failed to seek to start of file: %w", err)
	}

	key := fmt.Sprintf("%s/%s.parquet", datePath(batch.SettlementDate, "/"), batch.Source)

	if dst.Prefix != "" {
		key = dst.Prefix + "/" + key
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(dst.Bucket),
		Key:    aws.String(key),
		Body:   tmp,
	}

	if _, err := client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload file to s3://%s/%s: %w", dst.Bucket, key, err)
	}

	return fmt.Sprintf("s3://%s/%s", dst.Bucket, key), nil
}

// Store writes the batch to dst, either an s3:// url or a local directory.
func Store(ctx context.Context, batch *Batch, dst string, client func() (ObjectPutter, error)) (string, error) {
	if !strings.HasPrefix(dst, "s3://") {
		return StoreToPath(ctx, batch, dst)
	}

	s3Path, err := ParseS3(dst)
	if err != nil {
		return "", err
	}

	c, err := client()
	if err != nil {
		return "", err
	}

	return StoreToS3(ctx, batch, c, s3Path)
}
