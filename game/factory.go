package game

import (
	"context"
	"fmt"
	"time"

	"github.com/Mathih13/botfarm/logger"
	"github.com/Mathih13/botfarm/model"
	"github.com/brianvoe/gofakeit/v7"
)

// Factory spawns agents for a test run. The default implementation creates
// in-process simulated agents; a live deployment substitutes one backed by
// real game-client sessions.
type Factory interface {
	Spawn(ctx context.Context, harness model.HarnessSettings, index int) (AgentHandle, error)
}

// SimFactory is the in-process implementation.
type SimFactory struct {
	// SpawnDelay imitates the login round trip. Zero means instant.
	SpawnDelay time.Duration
}

func (f *SimFactory) Spawn(ctx context.Context, harness model.HarnessSettings, index int) (AgentHandle, error) {
	class, ok := ParseClass(harness.ClassFor(index))
	if !ok {
		return nil, fmt.Errorf("unknown class '%s' for bot at index %d", harness.ClassFor(index), index)
	}

	if f.SpawnDelay > 0 {
		select {
		case <-time.After(f.SpawnDelay):
		case <-ctx.Done():
			return nil, fmt.Errorf("spawn interrupted: %w", ctx.Err())
		}
	}

	prefix := harness.AccountPrefix
	if prefix == "" {
		prefix = "bot"
	}
	accountName := fmt.Sprintf("%s%d", prefix, index)

	// Deterministic per index so reruns produce the same roster.
	faker := gofakeit.New(uint64(index + 1))
	charName := faker.FirstName()

	agent := NewSimAgent(accountName, charName, class, harness.Level, Position{
		Map: harness.Start.Map,
		X:   harness.Start.X,
		Y:   harness.Start.Y,
		Z:   harness.Start.Z,
	})

	logger.Logger.Debug("Spawned agent",
		"account", accountName,
		"character", charName,
		"class", class,
		"level", harness.Level)

	return agent, nil
}

// Package-level factory for dependency injection, mirroring how server
// construction is injected elsewhere in the codebase.
var defaultFactory Factory = &SimFactory{}

// SetFactory allows tests and live deployments to inject their own factory.
func SetFactory(f Factory) {
	defaultFactory = f
}

func DefaultFactory() Factory {
	return defaultFactory
}
