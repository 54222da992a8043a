package main

import (
	"context"
	"fmt"
	"io"

	"github.com/vinayprograms/slideagent/agent"
	"github.com/vinayprograms/slideagent/automation"
	"github.com/vinayprograms/slideagent/config"
	"github.com/vinayprograms/slideagent/credentials"
	"github.com/vinayprograms/slideagent/llm"
	"github.com/vinayprograms/slideagent/logging"
	"github.com/vinayprograms/slideagent/mcp"
	"github.com/vinayprograms/slideagent/notify"
	"github.com/vinayprograms/slideagent/ratelimit"
	"github.com/vinayprograms/slideagent/shutdown"
	"github.com/vinayprograms/slideagent/telemetry"
	"github.com/vinayprograms/slideagent/tools"
	"github.com/vinayprograms/slideagent/uihost"
)

// app is everything a run needs, wired from config.
type app struct {
	agent    *agent.Agent
	notifier notify.Notifier
}

// setup builds the agent and its collaborators. Everything that holds a
// process, connection or buffer registers its cleanup with coord.
func setup(ctx context.Context, cfg *config.Config, logger *logging.Logger, coord *shutdown.Coordinator) (*app, error) {
	creds, credPath, err := credentials.Load()
	if err != nil {
		return nil, fmt.Errorf("credentials: %w", err)
	}
	if credPath != "" {
		logger.Debug("credentials loaded", map[string]interface{}{"path": credPath})
	}

	tracer, err := setupTracing(ctx, cfg, coord)
	if err != nil {
		return nil, err
	}

	journal, err := telemetry.NewExporter(cfg.Telemetry.Journal, cfg.Telemetry.JournalEndpoint)
	if err != nil {
		return nil, fmt.Errorf("journal: %w", err)
	}
	coord.RegisterFunc("journal", shutdown.PhaseTelemetry, func(ctx context.Context) error {
		if err := journal.Flush(); err != nil {
			return err
		}
		return journal.Close()
	})

	oracle, err := setupOracle(cfg, creds, coord)
	if err != nil {
		return nil, err
	}

	toolbox, err := setupTools(ctx, cfg, coord)
	if err != nil {
		return nil, err
	}

	opts := []agent.Option{
		agent.WithConfig(agent.Config{
			MaxIterations:  cfg.Loop.MaxIterations,
			OracleTimeout:  cfg.Oracle.Timeout.Duration,
			ToolTimeout:    cfg.Tools.Timeout.Duration,
			FeedBackErrors: cfg.Loop.FeedBackErrors,
		}),
		agent.WithLogger(logger.WithComponent("agent")),
		agent.WithTracer(tracer),
		agent.WithJournal(journal),
	}
	if cfg.Automation.Enabled {
		if !cfg.Automation.DryRun {
			logger.Warn("no native UI host in this build, falling back to the dry-run host")
		}
		host := uihost.NewDryRun(logger)
		opts = append(opts, agent.WithSequencer(automation.New(host, cfg.Automation.Sequencer(),
			automation.WithLogger(logger.WithComponent("automation")),
			automation.WithTracer(tracer),
			automation.WithJournal(journal),
		)))
	}

	return &app{
		agent:    agent.New(oracle, toolbox, opts...),
		notifier: setupNotifier(cfg, creds, logger),
	}, nil
}

func setupTracing(ctx context.Context, cfg *config.Config, coord *shutdown.Coordinator) (*telemetry.Tracer, error) {
	if cfg.Telemetry.OTLPEndpoint == "" {
		tracer := telemetry.NewTracer(telemetry.DefaultServiceName, cfg.Telemetry.Debug)
		telemetry.SetGlobalTracer(tracer)
		return tracer, nil
	}

	provider, err := telemetry.InitProvider(ctx, telemetry.ProviderConfig{
		ServiceVersion: version,
		Endpoint:       cfg.Telemetry.OTLPEndpoint,
		Protocol:       cfg.Telemetry.OTLPProtocol,
		Insecure:       cfg.Telemetry.Insecure,
		Debug:          cfg.Telemetry.Debug,
		SampleRatio:    cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("tracing: %w", err)
	}
	coord.RegisterFunc("tracing", shutdown.PhaseTelemetry, provider.Shutdown)
	return provider.Tracer(), nil
}

func setupOracle(cfg *config.Config, creds *credentials.Credentials, coord *shutdown.Coordinator) (llm.Oracle, error) {
	pc := cfg.Oracle.ProviderConfig
	if pc.APIKey == "" {
		pc.APIKey = creds.GetAPIKey(pc.Provider)
	}
	provider, err := llm.NewProvider(pc)
	if err != nil {
		return nil, fmt.Errorf("oracle: %w", err)
	}
	if c, ok := provider.(io.Closer); ok {
		coord.RegisterCloser("oracle", shutdown.PhaseTransport, c.Close)
	}
	if rpm := cfg.Oracle.RequestsPerMinute; rpm > 0 {
		limiter, err := ratelimit.PerMinute(rpm)
		if err != nil {
			return nil, fmt.Errorf("oracle: %w", err)
		}
		coord.RegisterCloser("rate-limiter", shutdown.PhaseRun, limiter.Close)
		provider = llm.WithRateLimit(provider, limiter)
	}
	return llm.NewOracle(llm.WithTracing(provider, pc.Provider), pc.MaxTokens), nil
}

func setupTools(ctx context.Context, cfg *config.Config, coord *shutdown.Coordinator) (agent.Toolbox, error) {
	if cfg.Tools.Source == config.ToolsBuiltin {
		return tools.NewRegistry(), nil
	}

	client, err := mcp.NewClient(mcp.ServerConfig{
		Command: cfg.Tools.Command,
		Args:    cfg.Tools.Args,
		Env:     cfg.Tools.Env,
	})
	if err != nil {
		return nil, fmt.Errorf("tool server: %w", err)
	}
	coord.RegisterCloser("tools", shutdown.PhaseTransport, client.Close)

	if err := client.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("tool server handshake: %w", err)
	}
	return client, nil
}

// setupNotifier builds the configured channels. A channel that cannot be
// built is logged and skipped; reports are best effort.
func setupNotifier(cfg *config.Config, creds *credentials.Credentials, logger *logging.Logger) notify.Notifier {
	var channels notify.Multi
	for _, name := range cfg.Notify.Channels {
		switch name {
		case config.ChannelLog:
			channels = append(channels, notify.Wrap(notify.NewLog(logger)))

		case config.ChannelEmail:
			ec := creds.GetEmail()
			mail, err := notify.NewEmail(notify.EmailConfig{
				Server:    ec.Server,
				Port:      ec.Port,
				Sender:    ec.Sender,
				Password:  ec.Password,
				Recipient: ec.Recipient,
			})
			if err != nil {
				logger.Warn("email reports disabled", map[string]interface{}{"error": err.Error()})
				continue
			}
			channels = append(channels, notify.Wrap(mail))

		case config.ChannelWebhook:
			hook, err := notify.NewWebhook(notify.WebhookConfig{
				URL:    cfg.Notify.WebhookURL,
				Secret: cfg.Notify.WebhookSecret,
			})
			if err != nil {
				logger.Warn("webhook reports disabled", map[string]interface{}{"error": err.Error()})
				continue
			}
			channels = append(channels, notify.Wrap(hook))
		}
	}
	if len(channels) == 0 {
		return notify.Nop{}
	}
	return channels
}
