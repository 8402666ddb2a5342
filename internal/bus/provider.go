package bus

import (
	"fmt"
	"strings"

	"github.com/ovation22/triplederby-workers/internal/config"
	"github.com/ovation22/triplederby-workers/internal/errs"
)

// Provider identifies which concrete broker adapter to construct (§4.6).
type Provider string

const (
	ProviderRabbit     Provider = "rabbit"
	ProviderServiceBus Provider = "servicebus"
)

// ResolveProvider implements §4.6's Auto-detection: an explicit Provider wins;
// "Auto" or empty inspects which connection string is configured, preferring
// the topic/exchange broker when both are present; any other value is a
// ConfigError.
func ResolveProvider(cfg config.Routing, conn config.ConnectionStrings) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "rabbit":
		return ProviderRabbit, nil
	case "servicebus":
		return ProviderServiceBus, nil
	case "", "auto":
		hasRabbit := strings.TrimSpace(conn.Messaging) != ""
		hasServiceBus := strings.TrimSpace(conn.ServiceBus) != ""
		switch {
		case hasRabbit:
			return ProviderRabbit, nil
		case hasServiceBus:
			return ProviderServiceBus, nil
		default:
			return "", errs.Config(
				"no broker connection string configured; set CONNECTIONSTRINGS_MESSAGING (RabbitMQ) or CONNECTIONSTRINGS_SERVICEBUS (Azure Service Bus)",
			)
		}
	default:
		return "", errs.Config(fmt.Sprintf("invalid MessageBus.Routing.Provider: %q", cfg.Provider))
	}
}
