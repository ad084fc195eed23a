package utils_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/gitp/internal/utils"
)

func TestCommandContextAccessorRoundTrip(testInstance *testing.T) {
	accessor := utils.NewCommandContextAccessor()

	_, available := accessor.EntryPointRoot(context.Background())
	require.False(testInstance, available)

	executionContext := accessor.WithConfigurationFilePath(context.Background(), "/etc/gitp/config.yaml")
	executionContext = accessor.WithEntryPointRoot(executionContext, "/work/app")

	entryPointRoot, available := accessor.EntryPointRoot(executionContext)
	require.True(testInstance, available)
	require.Equal(testInstance, "/work/app", entryPointRoot)

	configurationFilePath, available := accessor.ConfigurationFilePath(executionContext)
	require.True(testInstance, available)
	require.Equal(testInstance, "/etc/gitp/config.yaml", configurationFilePath)

	_, available = accessor.EntryPointRoot(accessor.WithEntryPointRoot(context.Background(), ""))
	require.False(testInstance, available)
}
