// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_storage

import (
	"bytes"
	"context"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/go-resty/resty/v2"

	"github.com/rapidaai/transcript-api/pkg/commons"
	"github.com/rapidaai/transcript-api/pkg/configs"
	"github.com/rapidaai/transcript-api/pkg/types"
)

const defaultContentType = "audio/mpeg"

type s3BlobStore struct {
	logger commons.Logger
	cfg    *configs.AssetStoreConfig
	s3     *s3.S3
	fetch  *resty.Client
}

// NewS3BlobStore builds the durable store over the configured bucket. The
// fetch client carries the telephony provider's basic-auth credentials since
// recording URLs are account-protected.
func NewS3BlobStore(cfg *configs.AssetStoreConfig, logger commons.Logger, fetchUser, fetchPassword string) (BlobStore, error) {
	awsCfg := aws.NewConfig().WithRegion(cfg.Region)
	if cfg.AccessKey != "" {
		awsCfg = awsCfg.WithCredentials(credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, ""))
	}
	if cfg.Endpoint != "" {
		awsCfg = awsCfg.WithEndpoint(cfg.Endpoint).WithS3ForcePathStyle(true)
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, err
	}
	fetch := resty.New().
		SetTimeout(2 * time.Minute).
		SetRetryCount(2)
	if fetchUser != "" {
		fetch.SetBasicAuth(fetchUser, fetchPassword)
	}
	return &s3BlobStore{
		logger: logger,
		cfg:    cfg,
		s3:     s3.New(sess),
		fetch:  fetch,
	}, nil
}

func (b *s3BlobStore) Upload(ctx context.Context, sourceUrl string, owner Ownership) (*UploadResult, error) {
	resp, err := b.fetch.R().SetContext(ctx).Get(sourceUrl)
	if err != nil {
		return nil, types.NewUpstreamError("telephony", "recording fetch failed", err)
	}
	if resp.IsError() {
		return nil, types.NewUpstreamError("telephony", "recording fetch returned "+resp.Status(), nil)
	}
	body := resp.Body()
	contentType := resp.Header().Get("Content-Type")
	if contentType == "" {
		contentType = defaultContentType
	}

	key := owner.Key()
	_, err = b.s3.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.cfg.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		return nil, types.NewUpstreamError("storage", "recording upload failed", err)
	}
	b.logger.Debugf("recording uploaded key=%s size=%d", key, len(body))
	return &UploadResult{
		StorageKey:  key,
		SizeBytes:   int64(len(body)),
		ContentType: contentType,
	}, nil
}

func (b *s3BlobStore) PlaybackUrl(ctx context.Context, storageKey string, ttl time.Duration) (string, time.Time, error) {
	req, _ := b.s3.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(b.cfg.Bucket),
		Key:    aws.String(storageKey),
	})
	req.SetContext(ctx)
	url, err := req.Presign(ttl)
	if err != nil {
		return "", time.Time{}, types.NewUpstreamError("storage", "presign failed", err)
	}
	return url, time.Now().Add(ttl), nil
}

// Delete is idempotent: S3 returns success for a missing key, which is
// exactly the monotonic behavior confirmation relies on.
func (b *s3BlobStore) Delete(ctx context.Context, storageKey string) error {
	_, err := b.s3.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.cfg.Bucket),
		Key:    aws.String(storageKey),
	})
	if err != nil {
		return types.NewUpstreamError("storage", "recording delete failed", err)
	}
	return nil
}
