package events

import (
	"fmt"
	"strings"

	"surveybot/internal/config"
	"surveybot/internal/logger"
)

// Provide builds NATS when nats.url is set and the in-memory bus otherwise
func Provide(cfg *config.Config, log *logger.Logger) (Bus, func(), error) {
	if strings.TrimSpace(cfg.NATS.URL) != "" {
		b, err := NewNATSBus(cfg.NATS, log)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize NATS event bus: %w", err)
		}
		return b, b.Close, nil
	}
	b := NewMemoryBus(log)
	return b, b.Close, nil
}
