package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lesson-planner-api/pkg/config"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "lesson-planner:preview:course-1:split", Key("preview", "course-1", "split"))
	assert.Equal(t, "lesson-planner:preview:a_b", Key("preview", " ", "a:b"))
	assert.Equal(t, "lesson-planner:preview:course-1:*", Key("preview", "course-1", "*"))
}

func TestNewRedisDisabled(t *testing.T) {
	client, err := NewRedis(context.Background(), config.RedisConfig{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, client)
}
