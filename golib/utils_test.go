package golib

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetEnv(t *testing.T) {
	t.Setenv("GOLIB_TEST_STR", "  value ")
	assert.Equal(t, "value", GetEnv("GOLIB_TEST_STR", "fallback"))
	assert.Equal(t, "fallback", GetEnv("GOLIB_TEST_UNSET", "fallback"))
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("GOLIB_TEST_INT", "42")
	t.Setenv("GOLIB_TEST_BAD_INT", "forty")
	assert.Equal(t, 42, GetEnvInt("GOLIB_TEST_INT", 1))
	assert.Equal(t, 1, GetEnvInt("GOLIB_TEST_BAD_INT", 1))
	assert.Equal(t, 7, GetEnvInt("GOLIB_TEST_UNSET", 7))
}

func TestGetEnvBool(t *testing.T) {
	t.Setenv("GOLIB_TEST_BOOL", "true")
	t.Setenv("GOLIB_TEST_BAD_BOOL", "maybe")
	assert.True(t, GetEnvBool("GOLIB_TEST_BOOL", false))
	assert.False(t, GetEnvBool("GOLIB_TEST_BAD_BOOL", false))
	assert.True(t, GetEnvBool("GOLIB_TEST_UNSET", true))
}

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{name: "bare seconds", value: "300", want: 300 * time.Second},
		{name: "go duration", value: "5m", want: 5 * time.Minute},
		{name: "invalid", value: "soon", want: time.Minute},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("GOLIB_TEST_DURATION", tc.value)
			assert.Equal(t, tc.want, GetEnvDuration("GOLIB_TEST_DURATION", time.Minute))
		})
	}
}

func TestGetEnvList(t *testing.T) {
	t.Setenv("GOLIB_TEST_LIST", "https://a.example, ,https://b.example,")
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, GetEnvList("GOLIB_TEST_LIST", nil))

	t.Setenv("GOLIB_TEST_EMPTY_LIST", " , ")
	assert.Equal(t, []string{"x"}, GetEnvList("GOLIB_TEST_EMPTY_LIST", []string{"x"}))
}
