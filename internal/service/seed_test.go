package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/domain"
	"github.com/spec-kit/triage-service/internal/repository"
)

func TestEnsureDefaultTeamsCreatesAllSix(t *testing.T) {
	teams := repository.NewMemoryTeamRepository()

	require.NoError(t, EnsureDefaultTeams(context.Background(), teams, zap.NewNop()))

	all, err := teams.FindAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, len(domain.CanonicalTeamDescriptions))
	for _, team := range all {
		assert.Equal(t, domain.CanonicalTeamDescriptions[team.Name], team.Description)
	}
}

func TestEnsureDefaultTeamsIsIdempotent(t *testing.T) {
	teams := repository.NewMemoryTeamRepository()

	require.NoError(t, EnsureDefaultTeams(context.Background(), teams, zap.NewNop()))
	require.NoError(t, EnsureDefaultTeams(context.Background(), teams, zap.NewNop()))

	all, err := teams.FindAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, len(domain.CanonicalTeamDescriptions))
}
