package template

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestExpand_Counter(t *testing.T) {
	ctx := Context{Counter: 4}

	assert.Equal(t, "#5", ctx.Expand("#{{counter}}").Text)
	assert.Equal(t, "#14 and #5", ctx.Expand("#{{counter:10}} and #{{counter}}").Text)
}

func TestExpand_DatetimeUsesTimestamp(t *testing.T) {
	ts := time.Date(2024, 3, 9, 14, 5, 0, 0, time.Local).Unix()
	ctx := Context{Timestamp: ts}

	assert.Equal(t, "2024-03-09 14:05", ctx.Expand("{{datetime:%Y-%m-%d %H:%M}}").Text)
}

func TestExpand_DatetimeUsesClock(t *testing.T) {
	fixed := time.Date(2001, 1, 2, 3, 4, 5, 0, time.UTC)
	ctx := Context{Now: func() time.Time { return fixed }}

	assert.Equal(t, "2001", ctx.Expand("{{datetime:%Y}}").Text)
}

func TestExpand_UUIDPerOccurrence(t *testing.T) {
	res := Context{}.Expand("{{uuid}}|{{uuid}}")
	parts := strings.Split(res.Text, "|")
	require.Len(t, parts, 2)
	assert.Len(t, parts[0], 36)
	assert.NotEqual(t, parts[0], parts[1])

	short := Context{}.Expand("{{short-uuid}}").Text
	assert.Len(t, short, 8)
}

func TestExpand_Env(t *testing.T) {
	ctx := Context{Getenv: func(name string) string {
		if name == "SITE" {
			return "Lab 3"
		}
		return ""
	}}

	assert.Equal(t, "at Lab 3!", ctx.Expand("at {{env:SITE}}!{{env:MISSING}}").Text)
}

func TestExpand_Random(t *testing.T) {
	res := Context{}.Expand("{{random:8}}{{random:8}}")
	require.Len(t, res.Text, 16)
	assert.NotEqual(t, res.Text[:8], res.Text[8:])
	assert.False(t, res.Shift)

	for _, r := range res.Text {
		assert.True(t, strings.ContainsRune(RandomAlphabet, r))
	}

	assert.Len(t, Context{}.Expand("{{random}}").Text, DefaultRandomLength)
}

func TestExpand_RandomShift(t *testing.T) {
	res := Context{}.Expand("{{random:5:shift}}")
	assert.Len(t, res.Text, 5)
	assert.True(t, res.Shift)

	res = Context{}.Expand("{{random:s}}")
	assert.Len(t, res.Text, DefaultRandomLength)
	assert.True(t, res.Shift)
}

func TestExpand_PlainTextUntouched(t *testing.T) {
	assert.Equal(t, "{{unknown}} text", Context{}.Expand("{{unknown}} text").Text)
}

func TestExpand_WarnsOnLongText(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	ctx := Context{Log: zap.New(core)}

	ctx.Expand(strings.Repeat("x", WarnLength+1))
	assert.Equal(t, 1, logs.Len())

	ctx.Expand("short")
	assert.Equal(t, 1, logs.Len())
}

func TestExpand_CounterOutOfRange(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	ctx := Context{Counter: 5, Log: zap.New(core)}

	for _, token := range []string{
		"{{counter:9223372036854775807}}",
		"{{counter:99999999999999999999}}",
	} {
		assert.Equal(t, "#"+token, ctx.Expand("#"+token).Text, token)
	}
	assert.Equal(t, 2, logs.FilterMessage("counter offset out of range").Len())
}

func TestExpand_RandomLengthCapped(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  int
	}{
		{"zero", "{{random:0}}", 0},
		{"at limit", "{{random:10000}}", MaxRandomLength},
		{"above limit", "{{random:10001}}", MaxRandomLength},
		{"ten digits", "{{random:9999999999}}", MaxRandomLength},
		{"overflows int", "{{random:99999999999999999999}}", MaxRandomLength},
		{"overflows with shift", "{{random:99999999999999999999:s}}", MaxRandomLength},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var res Result
			require.NotPanics(t, func() { res = Context{}.Expand(tt.token) })
			assert.Len(t, res.Text, tt.want)
		})
	}

	assert.Empty(t, RandomString(-3))
	assert.Len(t, RandomString(MaxRandomLength+1), MaxRandomLength)
}
