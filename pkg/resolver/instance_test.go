package resolver

import (
	"context"
	"net/url"
	"path/filepath"
	"testing"

	"github.com/glorpus-work/thinlaunch/pkg/errors"
	"github.com/glorpus-work/thinlaunch/pkg/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstance_ReinitializedAfterClose(t *testing.T) {
	t.Cleanup(func() { _ = CloseInstance() })
	require.NoError(t, CloseInstance())

	local := filepath.Join(t.TempDir(), "repository")
	proxy, _ := url.Parse("http://proxy.corp:3128")
	loads := 0
	withProxy := func() (*repository.Policy, error) {
		loads++
		return &repository.Policy{
			LocalRepository: local,
			Repositories:    []repository.Descriptor{{ID: "central", URL: "https://repo.example/maven2", ReleasesEnabled: true, Proxy: proxy}},
		}, nil
	}
	direct := func() (*repository.Policy, error) {
		loads++
		return &repository.Policy{
			LocalRepository: local,
			Repositories:    []repository.Descriptor{{ID: "central", URL: "https://repo.example/maven2", ReleasesEnabled: true}},
		}, nil
	}

	first, err := Instance(withProxy)
	require.NoError(t, err)
	assert.Equal(t, StateInitialized, InstanceState())
	assert.True(t, first.Policy().Repositories[0].HasProxy())

	again, err := Instance(direct)
	require.NoError(t, err)
	assert.Same(t, first, again, "configuration is read once per instance")
	assert.Equal(t, 1, loads)

	require.NoError(t, CloseInstance())
	assert.Equal(t, StateClosed, InstanceState())
	_, err = first.Resolve(context.Background(), Request{})
	assert.ErrorIs(t, err, errors.ErrResolverClosed)

	second, err := Instance(direct)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.False(t, second.Policy().Repositories[0].HasProxy())
	assert.Equal(t, 2, loads)
}

func TestInstance_LoadError(t *testing.T) {
	t.Cleanup(func() { _ = CloseInstance() })
	require.NoError(t, CloseInstance())

	_, err := Instance(func() (*repository.Policy, error) {
		return nil, errors.ErrConfigParse
	})
	assert.ErrorIs(t, err, errors.ErrConfigParse)
	assert.Equal(t, StateUninitialized, InstanceState())
}
