package backend

import (
	"fmt"

	"github.com/GillJordan/Home-expense/internal/config"
)

// Config holds configuration for backend creation.
type Config struct {
	Type BackendType

	// Google Sheets specific
	SpreadsheetID    string
	ServiceKey       string
	ValueInputOption string

	// Optional row event publishing
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// FromAppConfig converts the application config to backend config,
// resolving the service key file for the sheets backend.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	cfg := Config{
		Type:             backendType,
		SpreadsheetID:    appConfig.SpreadsheetID,
		ValueInputOption: appConfig.ValueInputOption,
		AMQPURL:          appConfig.AMQPURL,
		AMQPExchange:     appConfig.AMQPExchange,
		AMQPQueue:        appConfig.AMQPQueue,
	}
	if backendType == SheetsBackend {
		key, err := appConfig.ServiceKey()
		if err != nil {
			return Config{}, err
		}
		cfg.ServiceKey = key
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	if c.Type == SheetsBackend {
		if c.SpreadsheetID == "" {
			return fmt.Errorf("spreadsheet ID is required for sheets backend")
		}
		if c.ServiceKey == "" {
			return fmt.Errorf("service key is required for sheets backend")
		}
	}
	return nil
}

// GetBackendTypeStrings returns all valid backend type strings.
func GetBackendTypeStrings() []string {
	return []string{MemoryBackend.String(), SheetsBackend.String()}
}
