package worker

import (
	"context"

	"github.com/flexprice/tenantcore/internal/config"
	"github.com/flexprice/tenantcore/internal/logger"
	"github.com/flexprice/tenantcore/internal/service"
)

// NewProvisioningWorker polls for tenants waiting in Provisioning
func NewProvisioningWorker(cfg *config.Configuration, provisioning service.ProvisioningService, log *logger.Logger) *Ticker {
	return NewTicker("provisioning", cfg.Provisioning.PollInterval, func(ctx context.Context) error {
		result, err := provisioning.ProcessBatch(ctx)
		if err != nil {
			return err
		}
		if result.Claimed > 0 {
			log.Infow("provisioning batch processed",
				"claimed", result.Claimed,
				"succeeded", result.Succeeded,
				"failed", result.Failed,
			)
		}
		return nil
	}, log)
}

// NewMonitorWorker runs the lifecycle monitor scans
func NewMonitorWorker(cfg *config.Configuration, monitor service.MonitorService, log *logger.Logger) *Ticker {
	return NewTicker("lifecycle_monitor", cfg.Lifecycle.MonitorInterval, func(ctx context.Context) error {
		_, err := monitor.RunOnce(ctx)
		return err
	}, log)
}
