package storage

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/outfit/internal/config"
	"github.com/your-org/outfit/internal/models"
)

func TestGroupColumns(t *testing.T) {
	assert.Equal(t, "layered_wear", groupColumn(models.GroupLayeredWear))
	assert.Equal(t, []string{
		"row_index", "usage",
		"topwear", "topwear_color",
		"layered_wear", "layered_wear_color",
		"bottomwear", "bottomwear_color",
		"footwear", "footwear_color",
		"accessories", "accessories_color",
	}, compatibilityColumns())
}

func TestSchemaDeclaresEveryCompatibilityColumn(t *testing.T) {
	for _, col := range compatibilityColumns() {
		assert.Contains(t, schema, col)
	}
	assert.Contains(t, schema, "UNIQUE (upload_id, user_id, client_outfit_id)")
}

func TestObjectURL(t *testing.T) {
	public, err := NewMinIOStore(config.MinIOConfig{
		Endpoint:  "localhost:9000",
		Bucket:    "uploads",
		PublicURL: "https://cdn.example.com/",
	})
	require.NoError(t, err)

	u, err := public.ObjectURL(context.Background(), "uploads/1/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/uploads/uploads/1/a.jpg", u)

	presigned, err := NewMinIOStore(config.MinIOConfig{
		Endpoint:      "localhost:9000",
		AccessKey:     "minio",
		SecretKey:     "minio123",
		Bucket:        "uploads",
		Region:        "us-east-1",
		PresignExpiry: time.Hour,
	})
	require.NoError(t, err)

	u, err = presigned.ObjectURL(context.Background(), "uploads/1/a.jpg")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u, "http://localhost:9000/uploads/uploads/1/a.jpg?"), u)
	assert.Contains(t, u, "X-Amz-Expires=3600")
}

type countingURLer struct{ calls int }

func (c *countingURLer) ObjectURL(_ context.Context, key string) (string, error) {
	c.calls++
	return fmt.Sprintf("https://minio.example.com/%s?v=%d", key, c.calls), nil
}

func TestImageURLCache(t *testing.T) {
	objects := &countingURLer{}
	urls, err := NewImageURLCache(objects, time.Hour)
	require.NoError(t, err)

	u, err := urls.ImageURL(context.Background(), "uploads/1/a.jpg")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u, "https://minio.example.com/uploads/1/a.jpg?v="), u)

	u, err = urls.ImageURL(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, u)
	assert.Equal(t, 1, objects.calls)
}

func TestImageURLCachePresignsFromKey(t *testing.T) {
	presigned, err := NewMinIOStore(config.MinIOConfig{
		Endpoint:      "localhost:9000",
		AccessKey:     "minio",
		SecretKey:     "minio123",
		Bucket:        "uploads",
		Region:        "us-east-1",
		PresignExpiry: 2 * time.Hour,
	})
	require.NoError(t, err)

	urls, err := NewImageURLCache(presigned, 90*time.Minute)
	require.NoError(t, err)

	u, err := urls.ImageURL(context.Background(), "uploads/1/a.jpg")
	require.NoError(t, err)
	assert.Contains(t, u, "/uploads/uploads/1/a.jpg?")
	assert.Contains(t, u, "X-Amz-Expires=7200")
}
