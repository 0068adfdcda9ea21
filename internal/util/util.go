package util

import (
	"github.com/berfenger/homie2google/internal/config"

	"go.uber.org/zap"
)

const TEST_USER_ID = "6a1f7b7e-2d55-4a8e-9f4e-3c2b1a0d9e88"

func LoadTestConfig() config.Config {
	cfg := config.Config{
		LogLevel: zap.DebugLevel,
		Port:     8080,
		Secrets: config.SecretsConfig{
			AccessKey: "test-access-key",
		},
		Google: config.GoogleConfig{
			ProjectId:                   "homie2google-test",
			RequestSyncRateLimitSeconds: 1,
			ReportTimeoutMillis:         1000,
		},
		Users: []config.UserConfig{
			{
				Id:    TEST_USER_ID,
				Email: "test@example.com",
				Homie: &config.HomieConfig{
					Host:                     "localhost",
					Port:                     1883,
					ClientId:                 "homie2google-test",
					HomiePrefix:              "homie",
					ReconnectIntervalSeconds: 1,
				},
			},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}
