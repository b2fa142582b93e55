package app

import (
	"context"
	"fmt"

	"github.com/adda-baaj/agent-ping/internal/config"
	"github.com/adda-baaj/agent-ping/internal/forwarder"
	"github.com/adda-baaj/agent-ping/internal/logger"
	"github.com/adda-baaj/agent-ping/internal/storage"
	"github.com/adda-baaj/agent-ping/pkg/agentping"
	"github.com/adda-baaj/agent-ping/pkg/publishers"
)

// Relay represents the event relay runtime. It subscribes to the Agent Ping
// event stream and forwards every event to the configured publishers,
// remembering relayed IDs in storage.
type Relay struct {
	cfg     *config.Config
	client  *agentping.Client
	fanout  *publishers.Fanout
	service *forwarder.Service
	log     logger.Logger
	store   storage.Store
}

// NewRelay builds a relay runtime from config files.
func NewRelay(ctx context.Context, cfg *config.Config, log logger.Logger) (*Relay, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	client := agentping.NewClient(agentping.Config{
		BaseURL: cfg.BaseURL,
		Token:   cfg.Token,
		Timeout: cfg.Timeout,
	}, log)

	publisherReg, err := publishers.LoadRegistry(cfg.PublishersFile)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}

	enabledPublishers := publisherReg.Enabled()
	if len(enabledPublishers) == 0 {
		return nil, fmt.Errorf("no publishers configured")
	}

	pubClients, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabledPublishers, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}
	fanout := publishers.NewFanout(pubClients)
	publisherSummaries := make([]map[string]string, 0, len(enabledPublishers))
	for _, pubCfg := range enabledPublishers {
		publisherSummaries = append(publisherSummaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(publisherSummaries),
		"publishers": publisherSummaries,
	})

	storeOpts := storage.Options{
		EventTTL:        cfg.StorageTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	}
	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storeOpts)
	if err != nil {
		_ = fanout.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.BBoltPath,
		"event_ttl_seconds":        int(cfg.StorageTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	var acker forwarder.Acker
	if cfg.RelayAck {
		acker = client
	}
	processor := forwarder.NewProcessor(fanout, store, acker, log)

	return &Relay{
		cfg:     cfg,
		client:  client,
		fanout:  fanout,
		service: forwarder.NewService(processor, log),
		log:     log,
		store:   store,
	}, nil
}

// Run relays events until the context is cancelled or the stream fails.
// Storage and publishers are released when it returns.
func (r *Relay) Run(ctx context.Context) error {
	if r == nil || r.service == nil {
		return fmt.Errorf("relay is not initialized")
	}
	defer r.closeStore()
	defer r.closeFanout()

	sub, err := r.client.Subscribe(ctx, r.cfg.RelayEvents...)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer sub.Close()

	r.log.InfoObj("relay loop starting", "relay_state", map[string]any{
		"events":           r.cfg.RelayEvents,
		"publishers_count": r.fanout.Size(),
		"ack":              r.cfg.RelayAck,
	})

	stats, err := r.service.Run(ctx, sub)
	r.log.InfoObj("relay loop exiting", "relay_stats", map[string]any{
		"received": stats.Received,
		"relayed":  stats.Relayed,
		"skipped":  stats.Skipped,
		"failed":   stats.Failed,
	})
	return err
}

func (r *Relay) closeStore() {
	if r.store == nil {
		return
	}
	if err := r.store.Close(); err != nil {
		r.log.ErrorObj("storage close failed", "error", err)
	}
}

func (r *Relay) closeFanout() {
	if err := r.fanout.Close(); err != nil {
		r.log.ErrorObj("publisher close failed", "error", err)
	}
}
