package translation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Hello", "hello"},
		{"surrounding whitespace", "  hello  ", "hello"},
		{"mixed case and padding", " HeLLo World ", "hello world"},
		{"internal whitespace preserved", "a  b", "a  b"},
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeText(tt.in))
		})
	}
}

func TestResponseCacheKey(t *testing.T) {
	assert.Equal(t, "en:es:hello", ResponseCacheKey("en", "es", " Hello "))
	assert.Equal(t,
		ResponseCacheKey("en", "es", "Hello"),
		ResponseCacheKey("en", "es", "  hello "),
	)
	assert.NotEqual(t,
		ResponseCacheKey("en", "es", "hello"),
		ResponseCacheKey("en", "fr", "hello"),
	)
}

// Whitespace padding and letter case must never change the derived key.
func TestResponseCacheKeyNormalizationProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		text := rapid.StringMatching(`[a-zA-Z0-9 ]{0,40}`).Draw(t, "text")
		padLeft := rapid.StringMatching(`[ \t]{0,5}`).Draw(t, "padLeft")
		padRight := rapid.StringMatching(`[ \t]{0,5}`).Draw(t, "padRight")

		base := ResponseCacheKey("en", "es", text)
		padded := ResponseCacheKey("en", "es", padLeft+text+padRight)
		upper := ResponseCacheKey("en", "es", strings.ToUpper(text))

		if base != padded {
			t.Fatalf("padding changed key: %q vs %q", base, padded)
		}
		if base != upper {
			t.Fatalf("case changed key: %q vs %q", base, upper)
		}
	})
}

func TestIsNoEngineAvailable(t *testing.T) {
	assert.True(t, IsNoEngineAvailable(&Error{Code: ErrCodeNoEngine}))
	assert.False(t, IsNoEngineAvailable(&Error{Code: ErrCodeUpstreamError}))
	assert.False(t, IsNoEngineAvailable(assert.AnError))
	assert.False(t, IsNoEngineAvailable(nil))
}
