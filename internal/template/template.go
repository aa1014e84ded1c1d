// Package template expands placeholder tokens inside label text
package template

import (
	"math"
	"math/rand/v2"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/strftime"
	"go.uber.org/zap"
)

// WarnLength is the expanded length above which a warning is logged
const WarnLength = 500

// DefaultRandomLength is used by {{random}} without an explicit length
const DefaultRandomLength = 64

// MaxRandomLength caps {{random:N}}, matching the per-line text limit
const MaxRandomLength = 10000

// RandomAlphabet holds the characters drawn by {{random}} and the shift decoys
const RandomAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789" +
	"!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

var (
	counterPattern  = regexp.MustCompile(`\{\{counter(?::(\d+))?\}\}`)
	datetimePattern = regexp.MustCompile(`\{\{datetime:([^}]+)\}\}`)
	envPattern      = regexp.MustCompile(`\{\{env:([^}]+)\}\}`)
	randomPattern   = regexp.MustCompile(`\{\{random(?::(\d+))?(?::(s(?:hift)?))?\}\}`)
)

const (
	uuidToken      = "{{uuid}}"
	shortUUIDToken = "{{short-uuid}}"
)

// Context carries the values tokens are expanded from
type Context struct {
	Counter   int
	Timestamp int64 // unix seconds; 0 means now

	Now    func() time.Time
	Getenv func(string) string
	Log    *zap.Logger
}

// Result is the outcome of expanding one line
type Result struct {
	Text  string
	Shift bool // a {{random:..:shift}} token asked for redaction rendering
}

// Expand replaces every token in text.
// Token kinds are processed in a fixed order: counter, datetime, uuid, short-uuid, env, random.
func (c Context) Expand(text string) Result {
	log := c.Log
	if log == nil {
		log = zap.NewNop()
	}
	if len(text) > WarnLength {
		log.Warn("text line is very long, this may lead to long processing times",
			zap.Int("length", len(text)), zap.Int("threshold", WarnLength))
	}

	text = counterPattern.ReplaceAllStringFunc(text, func(m string) string {
		offset := 1
		if sub := counterPattern.FindStringSubmatch(m); sub[1] != "" {
			n, err := strconv.Atoi(sub[1])
			if err != nil || n > math.MaxInt-max(c.Counter, 0) {
				log.Warn("counter offset out of range", zap.String("token", m))
				return m
			}
			offset = n
		}
		return strconv.Itoa(c.Counter + offset)
	})

	text = datetimePattern.ReplaceAllStringFunc(text, func(m string) string {
		pattern := datetimePattern.FindStringSubmatch(m)[1]
		out, err := strftime.Format(pattern, c.now())
		if err != nil {
			log.Warn("invalid datetime pattern", zap.String("pattern", pattern), zap.Error(err))
			return pattern
		}
		return out
	})

	text = replaceEach(text, uuidToken, func() string { return uuid.NewString() })
	text = replaceEach(text, shortUUIDToken, func() string { return uuid.NewString()[:8] })

	text = envPattern.ReplaceAllStringFunc(text, func(m string) string {
		return c.getenv(envPattern.FindStringSubmatch(m)[1])
	})

	shift := false
	text = randomPattern.ReplaceAllStringFunc(text, func(m string) string {
		sub := randomPattern.FindStringSubmatch(m)
		length := DefaultRandomLength
		if sub[1] != "" {
			n, err := strconv.Atoi(sub[1])
			if err != nil || n > MaxRandomLength {
				log.Warn("random length capped",
					zap.String("token", m), zap.Int("max", MaxRandomLength))
				n = MaxRandomLength
			}
			length = n
		}
		if sub[2] != "" {
			shift = true
		}
		return RandomString(length)
	})

	return Result{Text: text, Shift: shift}
}

// RandomString draws n characters from RandomAlphabet, at most MaxRandomLength
func RandomString(n int) string {
	n = min(max(n, 0), MaxRandomLength)
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(RandomAlphabet[rand.IntN(len(RandomAlphabet))])
	}
	return b.String()
}

func (c Context) now() time.Time {
	if c.Timestamp > 0 {
		return time.Unix(c.Timestamp, 0)
	}
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c Context) getenv(name string) string {
	if c.Getenv != nil {
		return c.Getenv(name)
	}
	return os.Getenv(name)
}

// replaceEach substitutes every occurrence of token with a fresh value
func replaceEach(text, token string, next func() string) string {
	if !strings.Contains(text, token) {
		return text
	}
	var b strings.Builder
	for {
		i := strings.Index(text, token)
		if i < 0 {
			b.WriteString(text)
			return b.String()
		}
		b.WriteString(text[:i])
		b.WriteString(next())
		text = text[i+len(token):]
	}
}
