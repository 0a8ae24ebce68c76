package configuration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnv_NoFiles(t *testing.T) {
	n, err := LoadEnv([]string{"does-not-exist.env"})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestLoadEnv_ExistingFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("MUNLINK_TEST_KEY=abc\n"), 0o644))

	n, err := LoadEnv([]string{envFile})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "abc", os.Getenv("MUNLINK_TEST_KEY"))
	t.Cleanup(func() { _ = os.Unsetenv("MUNLINK_TEST_KEY") })
}

func TestLogrusLogLevel(t *testing.T) {
	cases := []struct {
		level string
		want  logrus.Level
	}{
		{"silent", logrus.PanicLevel},
		{"error", logrus.ErrorLevel},
		{"warn", logrus.WarnLevel},
		{"info", logrus.InfoLevel},
		{"debug", logrus.DebugLevel},
		{"bogus", logrus.ErrorLevel},
	}
	for _, tc := range cases {
		c := &Configuration{LogLevel: tc.level}
		assert.Equal(t, tc.want, c.LogrusLogLevel(), "level %q", tc.level)
	}
}

func TestValidateNotifications(t *testing.T) {
	c := &Configuration{}
	c.Notifications = NotificationsOptions{
		BatchSize:    50,
		MaxAttempts:  5,
		Lease:        300000000000, // 5m
		SMSChunkSize: 1000,
	}
	require.NoError(t, c.validateNotifications())

	c.Notifications.SMSChunkSize = 1001
	require.Error(t, c.validateNotifications())

	c.Notifications.SMSChunkSize = 500
	c.Notifications.MaxAttempts = 0
	require.Error(t, c.validateNotifications())
}
