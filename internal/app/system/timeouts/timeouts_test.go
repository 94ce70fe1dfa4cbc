package timeouts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	Reset()
	assert.Equal(t, 2*time.Second, Ping())
	assert.Equal(t, 5*time.Second, Short())
	assert.Equal(t, 10*time.Second, Medium())
	assert.Equal(t, 30*time.Second, Long())
}

func TestConfigure_KeepsUnsetFields(t *testing.T) {
	t.Cleanup(Reset)

	Configure(Config{Short: time.Second, Long: -1})
	assert.Equal(t, time.Second, Short())
	assert.Equal(t, Defaults.Medium, Medium())
	assert.Equal(t, Defaults.Long, Long())
}

func TestConfigureFromEnv(t *testing.T) {
	t.Cleanup(Reset)
	t.Setenv("MTHUNZI_TIMEOUT_SHORT", "750ms")
	t.Setenv("MTHUNZI_TIMEOUT_MEDIUM", "not-a-duration")
	t.Setenv("MTHUNZI_TIMEOUT_LONG", "2m")

	assert.Equal(t, 2, ConfigureFromEnv())
	assert.Equal(t, Config{
		Ping:   Defaults.Ping,
		Short:  750 * time.Millisecond,
		Medium: Defaults.Medium,
		Long:   2 * time.Minute,
	}, Current())
}
