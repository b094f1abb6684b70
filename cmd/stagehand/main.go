package main

import (
	"log/slog"
	"os"

	"github.com/tmandere/stagehand/internal/config"
	"github.com/tmandere/stagehand/internal/notify"
	"github.com/tmandere/stagehand/internal/workflows"
	"github.com/tmandere/stagehand/pkg/stagehand"
	"github.com/tmandere/stagehand/pkg/stagehand/core"
	"github.com/tmandere/stagehand/pkg/stagehand/defs"
)

func main() {

	//you may do your own logger setup here or use this default one with slog
	stagehand.SetupLogger()

	var sender core.Sender
	if url := config.GetSystemSettingString(config.NOTIFY_NATS_URL); url != "" {
		natsSender, err := notify.NewNATSSender(url, config.GetSystemSettingString(config.NOTIFY_NATS_SUBJECT_PREFIX))
		if err != nil {
			slog.Error("NATS sender setup failed", "error", err)
			os.Exit(1)
		}
		defer natsSender.Close()
		sender = natsSender
	} else {
		sender = notify.NewLogSender("stdout")
	}

	var billing *workflows.BillingClient
	if url := config.GetSystemSettingString(config.BILLING_URL); url != "" {
		billing = workflows.NewBillingClient(url,
			config.GetSystemSettingString(config.BILLING_MERCHANT_ID),
			config.GetSystemSettingString(config.BILLING_SIGNING_KEY))
	}

	catalog := workflows.Catalog(sender, billing)
	registrations := []stagehand.Registration{
		{Definition: workflows.OrderFulfilmentDefinition(), Capabilities: catalog},
		{Definition: workflows.OnboardingDefinition(), Capabilities: catalog},
	}

	// Definitions from a YAML file bind against the same handler catalog.
	if path := config.GetSystemSettingString(config.DEFINITIONS_FILE); path != "" {
		fileDefs, err := defs.LoadFile(path)
		if err != nil {
			slog.Error("Failed to load definitions file", "path", path, "error", err)
			os.Exit(1)
		}
		for _, def := range fileDefs {
			registrations = append(registrations, stagehand.Registration{Definition: def, Capabilities: catalog})
		}
		slog.Info("Loaded workflow definitions from file", "path", path, "count", len(fileDefs))
	}

	if err := stagehand.Start(nil, registrations...); err != nil {
		slog.Error("Engine exited with error", "error", err)
		os.Exit(1)
	}
}
