package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetBuildInfoNeverReturnsNil(t *testing.T) {
	info := GetBuildInfo()
	require.NotNil(t, info)
	assert.NotEmpty(t, info.GoVersion)
}

func TestGetBuildInfoDependenciesAreSortedByPath(t *testing.T) {
	info := GetBuildInfo()
	for i := 1; i < len(info.Dependencies); i++ {
		assert.LessOrEqual(t, info.Dependencies[i-1].Path, info.Dependencies[i].Path)
	}
}

func TestGetDependencyReturnsNilForUnknownModule(t *testing.T) {
	dep := GetDependency("this.module/does-not-exist")
	assert.Nil(t, dep)
}

func TestGetDependencyFindsKnownModuleWhenBuildInfoAvailable(t *testing.T) {
	info := GetBuildInfo()
	if len(info.Dependencies) == 0 {
		t.Skip("no embedded module dependency info available in this test binary")
	}
	want := info.Dependencies[0]
	got := GetDependency(want.Path)
	require.NotNil(t, got)
	assert.Equal(t, want.Path, got.Path)
	assert.Equal(t, want.Version, got.Version)
}
