package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.True(t, cfg.Migrations.AutoMigrate)
	assert.Equal(t, 520, cfg.Scheduler.MaxWeeks)
	assert.Equal(t, "split", cfg.Scheduler.DefaultPolicy)
	assert.Equal(t, 10*time.Minute, cfg.Scheduler.PreviewCacheTTL)
	assert.Equal(t, "15 2 * * *", cfg.Scheduler.RefreshCron)
}

func TestLoadSchedulerOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("SCHEDULER_TIMEZONE", "Asia/Jakarta")
	t.Setenv("SCHEDULER_MAX_WEEKS", "-4")
	t.Setenv("SCHEDULER_DEFAULT_POLICY", "reduce_duration")
	t.Setenv("SCHEDULER_PREVIEW_CACHE_TTL", "not-a-duration")
	t.Setenv("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 520, cfg.Scheduler.MaxWeeks)
	assert.Equal(t, "reduce_duration", cfg.Scheduler.DefaultPolicy)
	assert.Equal(t, 10*time.Minute, cfg.Scheduler.PreviewCacheTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "Asia/Jakarta", cfg.Scheduler.Location().String())
}

func TestSchedulerLocationFallback(t *testing.T) {
	assert.Equal(t, time.Local, SchedulerConfig{Timezone: "Nowhere/Invalid"}.Location())
	assert.Equal(t, time.Local, SchedulerConfig{}.Location())
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir on older toolchains).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
