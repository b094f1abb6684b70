package workflows

import "github.com/tmandere/stagehand/pkg/stagehand/core"

// Catalog merges every handler binding into one capability set, so
// definitions loaded from files can reference any of them by name.
func Catalog(sender core.Sender, billing *BillingClient) core.Capabilities {
	merged := core.Capabilities{
		Automations:  map[string]core.Automation{},
		Integrations: map[string]core.Integration{},
		Scorers:      map[string]core.Scorer{},
		Senders:      map[string]core.Sender{},
	}
	for _, caps := range []core.Capabilities{OrderCapabilities(sender, billing), OnboardingCapabilities(sender)} {
		for name, a := range caps.Automations {
			merged.Automations[name] = a
		}
		for name, i := range caps.Integrations {
			merged.Integrations[name] = i
		}
		for name, s := range caps.Scorers {
			merged.Scorers[name] = s
		}
		for name, s := range caps.Senders {
			merged.Senders[name] = s
		}
	}
	return merged
}
