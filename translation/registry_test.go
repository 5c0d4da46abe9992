package translation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRegistryDefaultResolution(t *testing.T) {
	r := NewRegistry(EngineIDCloud, zap.NewNop(), nil)
	cloud := &fakeEngine{name: "Google Translate", available: true, out: "cloud"}
	r.Register(EngineIDCloud, cloud)

	e, err := r.Engine("")
	require.NoError(t, err)
	assert.Equal(t, cloud, e, "cloud default resolves to the bare engine, never wrapped")
}

func TestRegistryModelDefaultGetsFallbackWrapped(t *testing.T) {
	r := NewRegistry(EngineIDModel, zap.NewNop(), nil)
	model := &fakeEngine{name: "GPT Translate", available: true, err: &Error{Code: ErrCodeUpstreamError, Message: "model down"}}
	cloud := &fakeEngine{name: "Google Translate", available: true, out: "cloud result"}
	r.Register(EngineIDModel, model)
	r.Register(EngineIDCloud, cloud)

	e, err := r.Engine("")
	require.NoError(t, err)
	_, isFallback := e.(*FallbackEngine)
	require.True(t, isFallback, "model-based default must come back fallback-wrapped")

	out, err := e.Translate(context.Background(), &Request{Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "cloud result", out)
}

func TestRegistryModelWrappedEvenWithUnavailableSecondary(t *testing.T) {
	r := NewRegistry(EngineIDModel, zap.NewNop(), nil)
	model := &fakeEngine{name: "GPT", available: true, out: "model result"}
	cloud := &fakeEngine{name: "Google", available: false}
	r.Register(EngineIDModel, model)
	r.Register(EngineIDCloud, cloud)

	// The wrap only requires the secondary to be registered; availability
	// is checked when the fallback actually fires.
	e, err := r.Engine("")
	require.NoError(t, err)
	_, isFallback := e.(*FallbackEngine)
	assert.True(t, isFallback)

	out, err := e.Translate(context.Background(), &Request{Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "model result", out)
}

func TestRegistryModelWithoutCloudNotWrapped(t *testing.T) {
	r := NewRegistry(EngineIDModel, zap.NewNop(), nil)
	model := &fakeEngine{name: "GPT", available: true, out: "model result"}
	r.Register(EngineIDModel, model)

	e, err := r.Engine("")
	require.NoError(t, err)
	assert.Equal(t, model, e)
}

func TestRegistryUserPreference(t *testing.T) {
	r := NewRegistry(EngineIDCloud, zap.NewNop(), nil)
	cloud := &fakeEngine{name: "Google", available: true, out: "cloud"}
	model := &fakeEngine{name: "GPT", available: true, out: "model"}
	r.Register(EngineIDCloud, cloud)
	r.Register(EngineIDModel, model)

	require.NoError(t, r.SetUserPreference("alice", EngineIDModel))

	e, err := r.Engine("alice")
	require.NoError(t, err)
	_, isFallback := e.(*FallbackEngine)
	assert.True(t, isFallback, "alice's model preference resolves to the wrapped engine")

	e, err = r.Engine("bob")
	require.NoError(t, err)
	assert.Equal(t, cloud, e, "users without a preference get the default")
}

func TestRegistrySetUserPreferenceUnknownEngine(t *testing.T) {
	r := NewRegistry(EngineIDCloud, zap.NewNop(), nil)
	assert.Error(t, r.SetUserPreference("alice", "nope"))
}

func TestRegistryUnavailablePreferredScansRegistrationOrder(t *testing.T) {
	r := NewRegistry(EngineIDCloud, zap.NewNop(), nil)
	cloud := &fakeEngine{name: "Google", available: false}
	model := &fakeEngine{name: "GPT", available: true, out: "model"}
	other := &fakeEngine{name: "Other", available: true, out: "other"}
	r.Register(EngineIDCloud, cloud)
	r.Register(EngineIDModel, model)
	r.Register("other", other)

	// Default (cloud) is unavailable: first available engine in
	// registration order wins, and the model engine still gets wrapped.
	e, err := r.Engine("")
	require.NoError(t, err)
	_, isFallback := e.(*FallbackEngine)
	assert.True(t, isFallback)

	out, err := e.Translate(context.Background(), &Request{Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "model", out)
}

func TestRegistryMissingPreferredEngine(t *testing.T) {
	r := NewRegistry("ghost", zap.NewNop(), nil)
	cloud := &fakeEngine{name: "Google", available: true, out: "cloud"}
	r.Register(EngineIDCloud, cloud)

	e, err := r.Engine("")
	require.NoError(t, err)
	assert.Equal(t, cloud, e)
}

func TestRegistryNoEngineAvailable(t *testing.T) {
	r := NewRegistry(EngineIDCloud, zap.NewNop(), nil)
	r.Register(EngineIDCloud, &fakeEngine{name: "Google", available: false})
	r.Register(EngineIDModel, &fakeEngine{name: "GPT", available: false})

	_, err := r.Engine("")
	require.Error(t, err)
	assert.True(t, IsNoEngineAvailable(err))
}

func TestRegistryEmpty(t *testing.T) {
	r := NewRegistry(EngineIDCloud, zap.NewNop(), nil)
	_, err := r.Engine("anyone")
	assert.True(t, IsNoEngineAvailable(err))
}

func TestRegistryAvailableEngines(t *testing.T) {
	r := NewRegistry(EngineIDCloud, zap.NewNop(), nil)
	r.Register(EngineIDCloud, &fakeEngine{name: "Google Translate", available: true})
	r.Register(EngineIDModel, &fakeEngine{name: "GPT Translate", available: false})
	r.Register("other", &fakeEngine{name: "Other", available: true})

	infos := r.AvailableEngines()
	require.Len(t, infos, 2)
	assert.Equal(t, EngineInfo{ID: EngineIDCloud, Name: "Google Translate"}, infos[0])
	assert.Equal(t, EngineInfo{ID: "other", Name: "Other"}, infos[1])
}

func TestRegistryPreferenceChangeObservedOnNextResolution(t *testing.T) {
	r := NewRegistry(EngineIDCloud, zap.NewNop(), nil)
	cloud := &fakeEngine{name: "Google", available: true, out: "cloud"}
	model := &fakeEngine{name: "GPT", available: true, out: "model"}
	r.Register(EngineIDCloud, cloud)
	r.Register(EngineIDModel, model)

	e, err := r.Engine("alice")
	require.NoError(t, err)
	assert.Equal(t, cloud, e)

	require.NoError(t, r.SetUserPreference("alice", EngineIDModel))

	e, err = r.Engine("alice")
	require.NoError(t, err)
	_, isFallback := e.(*FallbackEngine)
	assert.True(t, isFallback, "no restart or invalidation needed")
}
