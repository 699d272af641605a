package utils

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	environmentKeySeparatorOldConstant          = "."
	environmentKeySeparatorNewConstant          = "_"
	configurationPathRequiredMessageConstant    = "configuration file path must be provided"
	configurationReadErrorTemplateConstant      = "%w: %s: %w"
	configurationUnmarshalErrorTemplateConstant = "%w: %s: %w"
)

var (
	// ErrConfigurationRead reports that the configuration document could not be read.
	ErrConfigurationRead = errors.New("failed to read configuration")
	// ErrConfigurationParse reports a malformed configuration document or an invalid field.
	ErrConfigurationParse = errors.New("failed to parse configuration")
)

// ConfigurationLoader wraps Viper to load a structured configuration document and environment overrides.
type ConfigurationLoader struct {
	environmentPrefix      string
	environmentKeyReplacer *strings.Replacer
	rejectUnknownKeys      bool
}

// LoadedConfiguration surfaces metadata about the resolved configuration.
type LoadedConfiguration struct {
	ConfigFileUsed string
}

// NewConfigurationLoader creates a loader honoring the provided environment prefix.
// When rejectUnknownKeys is set, keys without a matching field fail decoding.
func NewConfigurationLoader(environmentPrefix string, rejectUnknownKeys bool) *ConfigurationLoader {
	return &ConfigurationLoader{
		environmentPrefix:      environmentPrefix,
		environmentKeyReplacer: strings.NewReplacer(environmentKeySeparatorOldConstant, environmentKeySeparatorNewConstant),
		rejectUnknownKeys:      rejectUnknownKeys,
	}
}

// LoadConfiguration populates targetConfiguration from the configuration file, defaults, and environment variables.
// The codec is selected from the file extension. Read failures wrap ErrConfigurationRead and decoding failures wrap
// ErrConfigurationParse.
func (loader *ConfigurationLoader) LoadConfiguration(configurationFilePath string, defaultValues map[string]any, targetConfiguration any) (LoadedConfiguration, error) {
	trimmedPath := strings.TrimSpace(configurationFilePath)
	if len(trimmedPath) == 0 {
		return LoadedConfiguration{}, fmt.Errorf("%w: %s", ErrConfigurationRead, configurationPathRequiredMessageConstant)
	}

	viperInstance := viper.New()
	viperInstance.SetConfigFile(trimmedPath)

	viperInstance.SetEnvPrefix(loader.environmentPrefix)
	if loader.environmentKeyReplacer != nil {
		viperInstance.SetEnvKeyReplacer(loader.environmentKeyReplacer)
	}
	viperInstance.AutomaticEnv()

	for defaultKey, defaultValue := range defaultValues {
		viperInstance.SetDefault(defaultKey, defaultValue)
	}

	if readError := viperInstance.ReadInConfig(); readError != nil {
		var parseError viper.ConfigParseError
		var unsupportedError viper.UnsupportedConfigError
		if errors.As(readError, &parseError) || errors.As(readError, &unsupportedError) {
			return LoadedConfiguration{}, fmt.Errorf(configurationUnmarshalErrorTemplateConstant, ErrConfigurationParse, trimmedPath, readError)
		}
		return LoadedConfiguration{}, fmt.Errorf(configurationReadErrorTemplateConstant, ErrConfigurationRead, trimmedPath, readError)
	}

	unmarshalError := viperInstance.Unmarshal(targetConfiguration, func(decoderConfiguration *mapstructure.DecoderConfig) {
		decoderConfiguration.ErrorUnused = loader.rejectUnknownKeys
	})
	if unmarshalError != nil {
		return LoadedConfiguration{}, fmt.Errorf(configurationUnmarshalErrorTemplateConstant, ErrConfigurationParse, trimmedPath, unmarshalError)
	}

	return LoadedConfiguration{ConfigFileUsed: viperInstance.ConfigFileUsed()}, nil
}
