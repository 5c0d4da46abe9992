package translation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeEngine is a scriptable Engine for registry and fallback tests.
type fakeEngine struct {
	name      string
	available bool
	out       string
	err       error
	langs     []string
	costPer   float64
	calls     int
}

func (f *fakeEngine) Translate(_ context.Context, _ *Request) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.out, nil
}

func (f *fakeEngine) Available() bool              { return f.available }
func (f *fakeEngine) Name() string                 { return f.name }
func (f *fakeEngine) SupportedLanguages() []string { return f.langs }
func (f *fakeEngine) EstimateCost(text string) float64 {
	return float64(len(text)) * f.costPer
}

func TestFallbackPrimarySucceeds(t *testing.T) {
	primary := &fakeEngine{name: "P", available: true, out: "primary result"}
	secondary := &fakeEngine{name: "S", available: true, out: "secondary result"}

	e := NewFallbackEngine("gpt", primary, "google", secondary, zap.NewNop(), nil)
	out, err := e.Translate(context.Background(), &Request{Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "primary result", out)
	assert.Zero(t, secondary.calls)
}

func TestFallbackPrimaryFails(t *testing.T) {
	primaryErr := &Error{Code: ErrCodeUpstreamError, Message: "boom", Engine: "gpt"}
	primary := &fakeEngine{name: "P", available: true, err: primaryErr}
	secondary := &fakeEngine{name: "S", available: true, out: "secondary result"}

	e := NewFallbackEngine("gpt", primary, "google", secondary, zap.NewNop(), nil)
	out, err := e.Translate(context.Background(), &Request{Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "secondary result", out)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, secondary.calls)
}

func TestFallbackSecondaryUnavailableRaisesPrimaryError(t *testing.T) {
	primaryErr := &Error{Code: ErrCodeUpstreamError, Message: "boom", Engine: "gpt"}
	primary := &fakeEngine{name: "P", available: true, err: primaryErr}
	secondary := &fakeEngine{name: "S", available: false, out: "unused"}

	e := NewFallbackEngine("gpt", primary, "google", secondary, zap.NewNop(), nil)
	_, err := e.Translate(context.Background(), &Request{Text: "hi"})
	require.Error(t, err)
	assert.Same(t, primaryErr, err, "primary error must surface unchanged")
	assert.Zero(t, secondary.calls)
}

func TestFallbackBothFail(t *testing.T) {
	primary := &fakeEngine{name: "P", available: true, err: &Error{Code: ErrCodeUpstreamError, Message: "p"}}
	secondary := &fakeEngine{name: "S", available: true, err: &Error{Code: ErrCodeUpstreamError, Message: "s"}}

	e := NewFallbackEngine("gpt", primary, "google", secondary, zap.NewNop(), nil)
	_, err := e.Translate(context.Background(), &Request{Text: "hi"})
	require.Error(t, err)
	assert.Equal(t, "s", err.Error(), "secondary's error is the one returned once fallback was attempted")
}

func TestFallbackMetadataDelegatesToPrimary(t *testing.T) {
	primary := &fakeEngine{name: "Primary", available: false, langs: []string{"en", "es"}, costPer: 2}
	secondary := &fakeEngine{name: "Secondary", available: true, langs: []string{"fr"}, costPer: 5}

	e := NewFallbackEngine("gpt", primary, "google", secondary, zap.NewNop(), nil)
	assert.Equal(t, "Primary", e.Name())
	assert.False(t, e.Available())
	assert.Equal(t, []string{"en", "es"}, e.SupportedLanguages())
	assert.Equal(t, float64(4), e.EstimateCost("ab"))
}
