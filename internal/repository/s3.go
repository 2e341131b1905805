package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/debemdeboas/site-editor/internal/model"
)

const sectionObjectExt = ".json"

// S3API is the subset of the S3 client used by S3Repository.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Repository keeps one JSON object per section under prefix.
type S3Repository struct { // implements ContentRepository
	notifier

	client S3API
	bucket string
	prefix string

	mu    sync.Mutex
	etags map[model.SectionKey]string
}

// NewS3Client builds a client for an S3-compatible endpoint with static credentials.
func NewS3Client(ctx context.Context, accessKeyID, accessKeySecret, baseEndpoint string) (*s3.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKeyID, accessKeySecret, "")),
		config.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("error initializing S3 client: %w", err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if baseEndpoint != "" {
			o.BaseEndpoint = aws.String(baseEndpoint)
		}
		o.UsePathStyle = true
	}), nil
}

func NewS3Repository(client S3API, bucket, prefix string) *S3Repository {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &S3Repository{
		client: client,
		bucket: bucket,
		prefix: prefix,
		etags:  make(map[model.SectionKey]string),
	}
}

func (r *S3Repository) objectKey(section model.SectionKey) string {
	return r.prefix + string(section) + sectionObjectExt
}

func (r *S3Repository) sectionFromKey(key string) (model.SectionKey, bool) {
	name, ok := strings.CutPrefix(key, r.prefix)
	if !ok || !strings.HasSuffix(name, sectionObjectExt) {
		return "", false
	}
	return sectionKeyFromName(strings.TrimSuffix(name, sectionObjectExt))
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NoSuchKey" || code == "NotFound"
	}
	return false
}

func (r *S3Repository) FetchSectionContent(ctx context.Context, section model.SectionKey) (model.SectionContent, error) {
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(r.objectKey(section)),
	})
	if isNotFound(err) {
		return model.SectionContent{}, nil
	}
	if err != nil {
		return nil, wrapErr("fetching", section, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, wrapErr("reading", section, err)
	}

	fields := make(model.SectionContent)
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, wrapErr("decoding", section, err)
	}
	return fields, nil
}

// WriteField does a read-modify-write of the section object. Writers in this process
// are serialized; concurrent writers elsewhere are last-write-wins.
func (r *S3Repository) WriteField(ctx context.Context, section model.SectionKey, field model.FieldName, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	fields, err := r.FetchSectionContent(ctx, section)
	if err != nil {
		return err
	}
	fields[field] = value

	data, err := json.Marshal(fields)
	if err != nil {
		return wrapErr("encoding", section, err)
	}

	out, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(r.objectKey(section)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return wrapErr("writing", section, err)
	}

	if out.ETag != nil {
		r.etags[section] = aws.ToString(out.ETag)
	}
	return nil
}

func (r *S3Repository) listETags(ctx context.Context) (map[model.SectionKey]string, error) {
	etags := make(map[model.SectionKey]string)
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(r.bucket),
		Prefix: aws.String(r.prefix),
	}
	for {
		page, err := r.client.ListObjectsV2(ctx, input)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			if key, ok := r.sectionFromKey(aws.ToString(obj.Key)); ok {
				etags[key] = aws.ToString(obj.ETag)
			}
		}
		if !aws.ToBool(page.IsTruncated) {
			return etags, nil
		}
		input.ContinuationToken = page.NextContinuationToken
	}
}

func (r *S3Repository) Watch(ctx context.Context, interval time.Duration) {
	if etags, err := r.listETags(ctx); err == nil {
		r.mu.Lock()
		r.etags = etags
		r.mu.Unlock()
	}
	poll(ctx, interval, r.checkForChanges)
}

func (r *S3Repository) checkForChanges(ctx context.Context) {
	etags, err := r.listETags(ctx)
	if err != nil {
		repoLogger.Error().Err(err).Msg("Error listing section objects")
		return
	}

	r.mu.Lock()
	var changed []model.SectionKey
	for key, etag := range etags {
		if r.etags[key] != etag {
			changed = append(changed, key)
		}
	}
	r.etags = etags
	r.mu.Unlock()

	for _, section := range changed {
		repoLogger.Info().Str("section", string(section)).Msg("Section object changed, reloading")
		r.notifySectionReload(section)
	}
}
