package services

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	lru "github.com/hashicorp/golang-lru"
)

// BackgroundService resolves rank card backgrounds stored in a
// DigitalOcean Space. Resolved URLs are cached since the bucket contents
// change rarely.
type BackgroundService struct {
	client *s3.Client
	bucket string
	region string
	root   string
	cache  *lru.Cache
}

func NewBackgroundService(key, secret, region, bucket, root string) (*BackgroundService, error) {
	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL: fmt.Sprintf("https://%s.digitaloceanspaces.com", region),
		}, nil
	})

	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithEndpointResolverWithOptions(resolver),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(key, secret, "")),
		config.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load spaces config: %w", err)
	}

	cache, err := lru.New(256)
	if err != nil {
		return nil, err
	}

	return &BackgroundService{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		region: region,
		root:   strings.Trim(root, "/"),
		cache:  cache,
	}, nil
}

// List returns the background names available under the configured root.
func (s *BackgroundService) List(ctx context.Context) ([]string, error) {
	prefix := s.root + "/"
	input := &s3.ListObjectsV2Input{
		Bucket:  &s.bucket,
		Prefix:  &prefix,
		MaxKeys: aws.Int32(1000),
	}

	var names []string
	paginator := s3.NewListObjectsV2Paginator(s.client, input)
	for paginator.HasMorePages() {
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list backgrounds: %w", err)
		}
		for _, obj := range output.Contents {
			if obj.Key == nil {
				continue
			}
			name := strings.TrimPrefix(*obj.Key, prefix)
			if name == "" {
				continue
			}
			names = append(names, name)
		}
	}
	return names, nil
}

// Resolve turns a background name into its public CDN URL, verifying the
// object exists on the first lookup.
func (s *BackgroundService) Resolve(ctx context.Context, name string) (string, error) {
	if cached, ok := s.cache.Get(name); ok {
		return cached.(string), nil
	}

	key := path.Join(s.root, name)
	if _, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	}); err != nil {
		return "", fmt.Errorf("background %q not found: %w", name, err)
	}

	url := fmt.Sprintf("https://%s.%s.cdn.digitaloceanspaces.com/%s", s.bucket, s.region, key)
	s.cache.Add(name, url)
	return url, nil
}
