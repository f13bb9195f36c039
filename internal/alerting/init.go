package alerting

import (
	"context"
	"time"

	"github.com/signalwatch/trendalert-go/internal/datastore/repository"
	"github.com/signalwatch/trendalert-go/internal/logger"
)

// Initialize creates the alerting engine and its scheduler. It seeds the
// built-in rules when configured, loads rules and thresholds, recovers open
// alerts from the database, and subscribes the engine to the trend bus. The
// scheduler is returned stopped; the caller starts it once the rest of the
// process is up.
func Initialize(deps EngineDeps, bus *TrendBus) (*Engine, *Scheduler, error) {
	ctx := context.Background()

	if deps.Settings.SeedDefaults {
		if err := seedDefaultRules(ctx, deps.Rules, deps.Log); err != nil {
			return nil, nil, err
		}
	}

	engine := NewEngine(deps)

	if err := engine.RefreshRules(ctx); err != nil {
		return nil, nil, err
	}
	if err := engine.RefreshThresholds(ctx); err != nil {
		return nil, nil, err
	}
	if err := engine.Recover(ctx, time.Now()); err != nil {
		return nil, nil, err
	}

	bus.Subscribe(engine.HandleTrend)

	scheduler := NewScheduler(engine, deps.Settings, deps.Log)
	return engine, scheduler, nil
}

// seedDefaultRules ensures all built-in rules exist. It checks by name so
// user-created rules and user-disabled built-ins are left alone.
func seedDefaultRules(ctx context.Context, repo repository.AlertRuleRepository, log logger.Logger) error {
	existing, err := repo.ListRules(ctx, repository.AlertRuleFilter{})
	if err != nil {
		return err
	}

	existingNames := make(map[string]struct{}, len(existing))
	for i := range existing {
		existingNames[existing[i].Name] = struct{}{}
	}

	defaults := DefaultRules()
	var created int
	for i := range defaults {
		if _, exists := existingNames[defaults[i].Name]; exists {
			continue
		}
		if err := repo.CreateRule(ctx, &defaults[i]); err != nil {
			return err
		}
		created++
	}
	if created > 0 {
		log.Info("seeded default alert rules", logger.Int("created", created))
	}
	return nil
}

// ResetDefaultRules deletes all built-in rules and reseeds them, returning
// how many rules were removed.
func ResetDefaultRules(ctx context.Context, repo repository.AlertRuleRepository, log logger.Logger) (int64, error) {
	deleted, err := repo.DeleteBuiltInRules(ctx)
	if err != nil {
		return 0, err
	}
	if err := seedDefaultRules(ctx, repo, log); err != nil {
		return deleted, err
	}
	return deleted, nil
}
