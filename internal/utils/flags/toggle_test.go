package flags

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func TestAddToggleFlagParsesValues(testInstance *testing.T) {
	testCases := []struct {
		name            string
		arguments       []string
		expectedValue   bool
		expectedChanged bool
	}{
		{name: "default_false", arguments: []string{}, expectedValue: false, expectedChanged: false},
		{name: "implicit_true", arguments: []string{"--force"}, expectedValue: true, expectedChanged: true},
		{name: "explicit_yes", arguments: []string{"--force", "yes"}, expectedValue: true, expectedChanged: true},
		{name: "explicit_uppercase_true", arguments: []string{"--force", "TRUE"}, expectedValue: true, expectedChanged: true},
		{name: "explicit_no", arguments: []string{"--force", "no"}, expectedValue: false, expectedChanged: true},
		{name: "shorthand_off", arguments: []string{"-f", "off"}, expectedValue: false, expectedChanged: true},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			command := &cobra.Command{}

			var forceValue bool
			AddToggleFlag(command.Flags(), &forceValue, "force", "f", false, "Replace local content")

			require.NoError(testInstance, command.ParseFlags(NormalizeToggleArguments(testCase.arguments)))
			require.Equal(testInstance, testCase.expectedValue, forceValue)

			flag := command.Flags().Lookup("force")
			require.NotNil(testInstance, flag)
			require.Equal(testInstance, testCase.expectedChanged, flag.Changed)
		})
	}
}

func TestNormalizeToggleArgumentsLeavesPositionalsAlone(testInstance *testing.T) {
	command := &cobra.Command{}
	var overlayValue bool
	AddToggleFlag(command.Flags(), &overlayValue, "overlay", "", false, "Declare an overlay")

	normalized := NormalizeToggleArguments([]string{"--overlay", "lib/shared", "../shared", "--", "--overlay", "no"})
	require.Equal(testInstance, []string{"--overlay", "lib/shared", "../shared", "--", "--overlay", "no"}, normalized)

	normalized = NormalizeToggleArguments([]string{"--overlay", "no", "lib/shared"})
	require.Equal(testInstance, []string{"--overlay=no", "lib/shared"}, normalized)
}

func TestAddToggleFlagRejectsInvalidValues(testInstance *testing.T) {
	command := &cobra.Command{}

	var forceValue bool
	AddToggleFlag(command.Flags(), &forceValue, "force", "", false, "Replace local content")

	require.Error(testInstance, command.ParseFlags([]string{"--force=maybe"}))
	require.False(testInstance, forceValue)
}
