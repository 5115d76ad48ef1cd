// Package objects lists and tags call recordings in S3.
package objects

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type s3API interface {
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	PutObjectTagging(ctx context.Context, in *s3.PutObjectTaggingInput, optFns ...func(*s3.Options)) (*s3.PutObjectTaggingOutput, error)
}

// Store wraps an S3 client.
type Store struct {
	client s3API
}

func New(client s3API) *Store {
	return &Store{client: client}
}

func NewFromConfig(cfg aws.Config) *Store {
	return New(s3.NewFromConfig(cfg))
}

// List returns every key under prefix, following continuation tokens.
func (s *Store) List(ctx context.Context, bucket, prefix string) ([]string, error) {
	var keys []string
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3 list %s/%s: %w", bucket, prefix, err)
		}
		for _, obj := range page.Contents {
			if obj.Key != nil {
				keys = append(keys, *obj.Key)
			}
		}
	}
	return keys, nil
}

// PutTags replaces the tag set of one object.
func (s *Store) PutTags(ctx context.Context, bucket, key string, tags map[string]string) error {
	names := make([]string, 0, len(tags))
	for k := range tags {
		names = append(names, k)
	}
	sort.Strings(names)

	set := make([]types.Tag, 0, len(names))
	for _, k := range names {
		set = append(set, types.Tag{Key: aws.String(k), Value: aws.String(tags[k])})
	}

	_, err := s.client.PutObjectTagging(ctx, &s3.PutObjectTaggingInput{
		Bucket:  aws.String(bucket),
		Key:     aws.String(key),
		Tagging: &types.Tagging{TagSet: set},
	})
	if err != nil {
		return fmt.Errorf("s3 tag %s/%s: %w", bucket, key, err)
	}
	return nil
}
