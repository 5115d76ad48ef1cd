package objects

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type fakeS3 struct {
	pages   [][]string
	calls   int
	tagged  map[string][]types.Tag
	listErr error
	tagErr  error
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	page := f.pages[f.calls]
	f.calls++

	out := &s3.ListObjectsV2Output{}
	for _, k := range page {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	if f.calls < len(f.pages) {
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String("next")
	}
	return out, nil
}

func (f *fakeS3) PutObjectTagging(_ context.Context, in *s3.PutObjectTaggingInput, _ ...func(*s3.Options)) (*s3.PutObjectTaggingOutput, error) {
	if f.tagErr != nil {
		return nil, f.tagErr
	}
	if f.tagged == nil {
		f.tagged = map[string][]types.Tag{}
	}
	f.tagged[*in.Key] = in.Tagging.TagSet
	return &s3.PutObjectTaggingOutput{}, nil
}

func TestStore_ListPaginates(t *testing.T) {
	fake := &fakeS3{pages: [][]string{{"rec/c1/a.wav", "rec/c1/b.wav"}, {"rec/c1/c.wav"}}}

	keys, err := New(fake).List(context.Background(), "bucket", "rec/c1")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(keys) != 3 || keys[2] != "rec/c1/c.wav" {
		t.Errorf("Unexpected keys %v", keys)
	}
	if fake.calls != 2 {
		t.Errorf("Expected 2 pages, got %d", fake.calls)
	}
}

func TestStore_ListError(t *testing.T) {
	boom := errors.New("denied")
	_, err := New(&fakeS3{listErr: boom}).List(context.Background(), "bucket", "p")
	if !errors.Is(err, boom) {
		t.Errorf("Expected wrapped error, got %v", err)
	}
}

func TestStore_PutTags(t *testing.T) {
	fake := &fakeS3{}
	err := New(fake).PutTags(context.Background(), "bucket", "k", map[string]string{
		"jobPostId":      "J1",
		"candidateToken": "T1",
	})
	if err != nil {
		t.Fatalf("PutTags failed: %v", err)
	}

	set := fake.tagged["k"]
	if len(set) != 2 || *set[0].Key != "candidateToken" || *set[1].Value != "J1" {
		t.Errorf("Unexpected tag set %+v", set)
	}
}
