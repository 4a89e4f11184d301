package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/domain"
	"github.com/spec-kit/triage-service/internal/repository"
)

// EnsureDefaultTeams idempotently creates the six canonical teams. Triage
// requires at least one team to exist; callers run this once at bootstrap
// rather than the orchestrator checking per request.
func EnsureDefaultTeams(ctx context.Context, teams repository.TeamRepository, logger *zap.Logger) error {
	for _, name := range []string{
		domain.TeamSupport,
		domain.TeamBilling,
		domain.TeamTechnical,
		domain.TeamOperations,
		domain.TeamProduct,
		domain.TeamEscalations,
	} {
		existing, err := teams.FindByName(ctx, name)
		if err == nil && existing != nil {
			continue
		}
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return err
		}

		team := &domain.Team{Name: name, Description: domain.CanonicalTeamDescriptions[name]}
		if err := teams.Create(ctx, team); err != nil {
			return err
		}
		logger.Info("seeded team", zap.String("team_id", team.ID), zap.String("name", team.Name))
	}
	return nil
}
