package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/penhub/pushkit/pkg/capability"
	"github.com/penhub/pushkit/pkg/config"
	"github.com/penhub/pushkit/pkg/dispatch"
	"github.com/penhub/pushkit/pkg/permission"
	"github.com/penhub/pushkit/pkg/platform"
	"github.com/penhub/pushkit/pkg/prefs"
	"github.com/penhub/pushkit/pkg/registry"
	"github.com/penhub/pushkit/pkg/subscription"
)

var agentCfgPath string

// AgentCmd runs the device-side lifecycle harness against a simulated
// platform: detect capabilities, recover or create a subscription,
// mirror it to the registry, and route incoming events until stopped.
var AgentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Run the device-side push agent",
	Long:  "Run a simulated device agent that subscribes to push, mirrors the subscription to the registry, and routes delivered notifications",
	RunE:  runAgent,
}

func init() {
	AgentCmd.Flags().StringVarP(&agentCfgPath, "config", "c", "", "Configuration file path")
}

// prefNotifier drops notifications whose category the user disabled
// before they reach the platform tray.
type prefNotifier struct {
	platform.Notifier
	store *prefs.Store
}

func (n *prefNotifier) ShowNotification(ctx context.Context, notification platform.Notification) error {
	rec, err := n.store.Load()
	if err != nil {
		log.Printf("Warning: failed to load notification preferences: %v", err)
		rec = prefs.DefaultRecord()
	}
	var d dispatch.Data
	if len(notification.Data) > 0 {
		if err := json.Unmarshal(notification.Data, &d); err == nil && !rec.Allows(d.Type) {
			log.Printf("Suppressing %s notification per user preferences", d.Type)
			return nil
		}
	}
	return n.Notifier.ShowNotification(ctx, notification)
}

func runAgent(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(agentCfgPath)
	if err != nil {
		log.Printf("Failed to load config, using defaults: %v", err)
		cfg = config.DefaultConfig()
	}

	sim := platform.NewSupportedSim()
	detector := capability.Detect(sim)
	if !detector.Supported() {
		return fmt.Errorf("platform does not support push notifications")
	}
	log.Printf("Platform capabilities: %+v", detector.Capabilities())

	client := registry.NewClient(cfg.Agent.RegistryURL, cfg.Agent.Token)
	negotiator := permission.NewNegotiator(detector, sim)
	manager := subscription.NewManager(detector, negotiator, sim, client, cfg.Agent.ServerKey)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if sub := manager.Recover(ctx); sub != nil {
		log.Printf("Recovered existing subscription for %s", sub.Endpoint)
	} else {
		sub, err := manager.Subscribe(ctx)
		if err != nil {
			return fmt.Errorf("failed to subscribe: %w", err)
		}
		log.Printf("Subscribed: %s", sub.Endpoint)
	}

	if err := os.MkdirAll(cfg.Agent.StateDir, 0755); err != nil {
		return fmt.Errorf("failed to create state dir: %w", err)
	}
	prefStore := prefs.NewStore(cfg.Agent.StateDir)

	router := dispatch.NewRouter(
		&prefNotifier{Notifier: sim, store: prefStore},
		sim,
		client,
		func(ctx context.Context) error {
			if manager.Recover(ctx) == nil {
				_, err := manager.Subscribe(ctx)
				return err
			}
			return nil
		},
	)

	log.Println("Agent running, waiting for events...")
	router.Run(ctx, sim.Events())
	log.Println("Agent stopped")
	return nil
}
