package utils_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/gitws/internal/utils"
)

const (
	testEnvironmentPrefixConstant               = "TESTGITWS"
	testLogLevelKeyConstant                     = "common.log_level"
	testLogLevelEnvironmentVariableConstant     = "TESTGITWS_COMMON_LOG_LEVEL"
	testDefaultLogLevelConstant                 = "info"
	testFileLogLevelConstant                    = "warn"
	testEnvironmentLogLevelConstant             = "error"
	testYAMLCommonContentTemplateConstant       = "common:\n  log_level: %s\n"
	testYAMLWorkspaceContentConstant            = "workspace:\n  - path: /tmp/ws\n    repos: [app, lib]\n"
	testTOMLConfigContentConstant               = "[common]\nlog_level = \"debug\"\n\n[[workspace]]\npath = \"/tmp/ws\"\nrepos = [\"app\"]\n"
	testUnknownKeyConfigContentConstant         = "common:\n  log_levle: debug\n"
	testMalformedConfigContentConstant          = "common: [unterminated\n"
	configurationLoaderSubtestNameTemplateConst = "%d_%s"
)

type configurationFixture struct {
	Common     configurationCommonFixture      `mapstructure:"common"`
	Workspaces []configurationWorkspaceFixture `mapstructure:"workspace"`
}

type configurationCommonFixture struct {
	LogLevel string `mapstructure:"log_level"`
}

type configurationWorkspaceFixture struct {
	Path  string   `mapstructure:"path"`
	Repos []string `mapstructure:"repos"`
}

func writeConfigurationFile(testInstance *testing.T, fileName string, content string) string {
	testInstance.Helper()
	configurationFilePath := filepath.Join(testInstance.TempDir(), fileName)
	require.NoError(testInstance, os.WriteFile(configurationFilePath, []byte(content), 0o600))
	return configurationFilePath
}

func TestConfigurationLoaderPrecedence(testInstance *testing.T) {
	testCases := []struct {
		name                string
		fileLogLevel        string
		environmentLogLevel string
		expectedLogLevel    string
	}{
		{
			name:             "config file overrides defaults",
			fileLogLevel:     testFileLogLevelConstant,
			expectedLogLevel: testFileLogLevelConstant,
		},
		{
			name:                "environment overrides file",
			fileLogLevel:        testFileLogLevelConstant,
			environmentLogLevel: testEnvironmentLogLevelConstant,
			expectedLogLevel:    testEnvironmentLogLevelConstant,
		},
		{
			name:             "defaults apply when file omits value",
			expectedLogLevel: testDefaultLogLevelConstant,
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(configurationLoaderSubtestNameTemplateConst, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			configurationContent := testYAMLWorkspaceContentConstant
			if len(testCase.fileLogLevel) > 0 {
				configurationContent = fmt.Sprintf(testYAMLCommonContentTemplateConstant, testCase.fileLogLevel) + configurationContent
			}
			configurationFilePath := writeConfigurationFile(testInstance, "config.yaml", configurationContent)
			if len(testCase.environmentLogLevel) > 0 {
				testInstance.Setenv(testLogLevelEnvironmentVariableConstant, testCase.environmentLogLevel)
			}

			configurationLoader := utils.NewConfigurationLoader(testEnvironmentPrefixConstant, true)
			defaultValues := map[string]any{testLogLevelKeyConstant: testDefaultLogLevelConstant}

			loadedConfiguration := configurationFixture{}
			metadata, loadError := configurationLoader.LoadConfiguration(configurationFilePath, defaultValues, &loadedConfiguration)
			require.NoError(testInstance, loadError)
			require.Equal(testInstance, testCase.expectedLogLevel, loadedConfiguration.Common.LogLevel)
			require.Equal(testInstance, configurationFilePath, metadata.ConfigFileUsed)
			require.Len(testInstance, loadedConfiguration.Workspaces, 1)
			require.Equal(testInstance, []string{"app", "lib"}, loadedConfiguration.Workspaces[0].Repos)
		})
	}
}

func TestConfigurationLoaderReadsTOML(testInstance *testing.T) {
	configurationFilePath := writeConfigurationFile(testInstance, "workspaces.toml", testTOMLConfigContentConstant)

	loadedConfiguration := configurationFixture{}
	_, loadError := utils.NewConfigurationLoader(testEnvironmentPrefixConstant, true).LoadConfiguration(configurationFilePath, nil, &loadedConfiguration)
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, "debug", loadedConfiguration.Common.LogLevel)
	require.Len(testInstance, loadedConfiguration.Workspaces, 1)
	require.Equal(testInstance, "/tmp/ws", loadedConfiguration.Workspaces[0].Path)
	require.Equal(testInstance, []string{"app"}, loadedConfiguration.Workspaces[0].Repos)
}

func TestConfigurationLoaderErrors(testInstance *testing.T) {
	testCases := []struct {
		name          string
		pathBuilder   func(*testing.T) string
		rejectUnknown bool
		expectedError error
	}{
		{
			name:          "empty_path",
			pathBuilder:   func(*testing.T) string { return "  " },
			expectedError: utils.ErrConfigurationRead,
		},
		{
			name: "missing_file",
			pathBuilder: func(testInstance *testing.T) string {
				return filepath.Join(testInstance.TempDir(), "absent.yaml")
			},
			expectedError: utils.ErrConfigurationRead,
		},
		{
			name: "malformed_document",
			pathBuilder: func(testInstance *testing.T) string {
				return writeConfigurationFile(testInstance, "broken.yaml", testMalformedConfigContentConstant)
			},
			expectedError: utils.ErrConfigurationParse,
		},
		{
			name: "unsupported_extension",
			pathBuilder: func(testInstance *testing.T) string {
				return writeConfigurationFile(testInstance, "config.unknown", "common: {}\n")
			},
			expectedError: utils.ErrConfigurationParse,
		},
		{
			name: "unknown_key_rejected",
			pathBuilder: func(testInstance *testing.T) string {
				return writeConfigurationFile(testInstance, "typo.yaml", testUnknownKeyConfigContentConstant)
			},
			rejectUnknown: true,
			expectedError: utils.ErrConfigurationParse,
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(configurationLoaderSubtestNameTemplateConst, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			loadedConfiguration := configurationFixture{}
			_, loadError := utils.NewConfigurationLoader(testEnvironmentPrefixConstant, testCase.rejectUnknown).LoadConfiguration(testCase.pathBuilder(testInstance), nil, &loadedConfiguration)
			require.Error(testInstance, loadError)
			require.ErrorIs(testInstance, loadError, testCase.expectedError)
		})
	}
}

func TestConfigurationLoaderToleratesUnknownKeysWhenPermitted(testInstance *testing.T) {
	configurationFilePath := writeConfigurationFile(testInstance, "typo.yaml", testUnknownKeyConfigContentConstant)

	loadedConfiguration := configurationFixture{}
	_, loadError := utils.NewConfigurationLoader(testEnvironmentPrefixConstant, false).LoadConfiguration(configurationFilePath, nil, &loadedConfiguration)
	require.NoError(testInstance, loadError)
	require.Empty(testInstance, loadedConfiguration.Common.LogLevel)
}
