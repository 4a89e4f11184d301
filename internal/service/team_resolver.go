package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/domain"
	"github.com/spec-kit/triage-service/internal/repository"
)

// AssignmentResult is the transient outcome of one team/user resolution. An
// empty result (no team, no user) with a reason is a valid, non-fatal
// outcome.
type AssignmentResult struct {
	TeamID   *string
	TeamName string
	UserID   *string
	UserName string
	Reason   string
}

// minTagConfidence gates tag-based team matching.
const minTagConfidence = 0.3

// tagTeamMapping routes normalized tag names and classifier categories to
// canonical team names.
var tagTeamMapping = map[string]string{
	"billing":      domain.TeamBilling,
	"payment":      domain.TeamBilling,
	"invoice":      domain.TeamBilling,
	"refund":       domain.TeamBilling,
	"subscription": domain.TeamBilling,
	"charge":       domain.TeamBilling,
	"technical":    domain.TeamTechnical,
	"bug":          domain.TeamTechnical,
	"error":        domain.TeamTechnical,
	"issue":        domain.TeamTechnical,
	"problem":      domain.TeamTechnical,
	"broken":       domain.TeamTechnical,
	"not_working":  domain.TeamTechnical,
	"complaint":    domain.TeamSupport,
	"feedback":     domain.TeamSupport,
	"question":     domain.TeamSupport,
	"request":      domain.TeamSupport,
	"help":         domain.TeamSupport,
	"assistance":   domain.TeamSupport,
	"account":      domain.TeamSupport,
	"login":        domain.TeamSupport,
	"password":     domain.TeamSupport,
	"access":       domain.TeamSupport,
	"security":     domain.TeamSupport,
	"verification": domain.TeamSupport,
	"sales":        domain.TeamProduct,
	"purchase":     domain.TeamProduct,
	"upgrade":      domain.TeamProduct,
	"plan":         domain.TeamProduct,
	"feature":      domain.TeamProduct,
	"product":      domain.TeamProduct,
	"operations":   domain.TeamOperations,
	"process":      domain.TeamOperations,
	"workflow":     domain.TeamOperations,
	"escalated":    domain.TeamEscalations,
	"urgent":       domain.TeamEscalations,
	"critical":     domain.TeamEscalations,
	"priority":     domain.TeamEscalations,
}

// Every channel currently falls back to the support team.
var channelTeamMapping = map[domain.QueryChannel]string{
	domain.ChannelEmail:     domain.TeamSupport,
	domain.ChannelSocial:    domain.TeamSupport,
	domain.ChannelChat:      domain.TeamSupport,
	domain.ChannelCommunity: domain.TeamSupport,
}

// TeamResolver maps a query to a team and an available user within it,
// creating the team on first reference.
type TeamResolver struct {
	teams  repository.TeamRepository
	logger *zap.Logger

	// createMu serializes the lookup-then-create path so concurrent
	// resolutions of the same team name cannot create duplicates.
	createMu sync.Mutex
}

// NewTeamResolver constructs the resolver.
func NewTeamResolver(teams repository.TeamRepository, logger *zap.Logger) *TeamResolver {
	return &TeamResolver{teams: teams, logger: logger}
}

// AssignTeam resolves a team by tags first, then classifier category, then
// channel fallback, ensures the team exists, and picks an available user.
// A team-creation failure is reported inside the result, never as an error.
func (r *TeamResolver) AssignTeam(ctx context.Context, tags []domain.Tag, channel domain.QueryChannel, message string, insights *domain.ClassifierInsights) AssignmentResult {
	teamName, reason := r.resolveTeamName(tags, channel, insights)

	team, err := r.ensureTeamExists(ctx, teamName)
	if err != nil || team == nil {
		r.logger.Error("failed to find or create team", zap.String("team", teamName), zap.Error(err))
		return AssignmentResult{
			Reason: fmt.Sprintf("Failed to find or create team: %s", teamName),
		}
	}

	result := AssignmentResult{
		TeamID:   &team.ID,
		TeamName: team.Name,
		Reason:   reason,
	}
	if user := r.pickAvailableUser(ctx, team.ID); user != nil {
		result.UserID = &user.ID
		result.UserName = user.Name
	}
	return result
}

func (r *TeamResolver) resolveTeamName(tags []domain.Tag, channel domain.QueryChannel, insights *domain.ClassifierInsights) (string, string) {
	for _, tag := range tags {
		if tag.Confidence < minTagConfidence {
			continue
		}
		if teamName, ok := tagTeamMapping[normalizeTagName(tag.Name)]; ok {
			return teamName, fmt.Sprintf("Matched by tag: %s", tag.Name)
		}
	}

	if insights != nil && insights.Category != "" {
		if teamName, ok := tagTeamMapping[normalizeTagName(insights.Category)]; ok {
			return teamName, fmt.Sprintf("Matched by AI category: %s", insights.Category)
		}
	}

	teamName, ok := channelTeamMapping[channel]
	if !ok {
		teamName = domain.TeamSupport
	}
	return teamName, fmt.Sprintf("Default assignment by channel: %s", channel)
}

// ensureTeamExists looks a team up by name and creates it when absent.
// Creation is idempotent in effect: the lookup and create are serialized
// behind createMu so a racing resolution finds the row the winner created.
func (r *TeamResolver) ensureTeamExists(ctx context.Context, teamName string) (*domain.Team, error) {
	team, err := r.findTeam(ctx, teamName)
	if err != nil {
		return nil, err
	}
	if team != nil {
		return team, nil
	}

	r.createMu.Lock()
	defer r.createMu.Unlock()

	// Re-check under the lock; another resolution may have created it.
	team, err = r.findTeam(ctx, teamName)
	if err != nil {
		return nil, err
	}
	if team != nil {
		return team, nil
	}

	finalName := canonicalTeamName(teamName)
	description, ok := domain.CanonicalTeamDescriptions[finalName]
	if !ok {
		description = fmt.Sprintf("%s team", finalName)
	}

	created := &domain.Team{Name: finalName, Description: description}
	if err := r.teams.Create(ctx, created); err != nil {
		return nil, err
	}
	r.logger.Info("created team", zap.String("team_id", created.ID), zap.String("name", created.Name))
	return created, nil
}

func (r *TeamResolver) findTeam(ctx context.Context, teamName string) (*domain.Team, error) {
	team, err := r.teams.FindByName(ctx, teamName)
	if err == nil {
		return team, nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return nil, err
}

// pickAvailableUser prefers the oldest agent, else the oldest eligible user.
// No round-robin state is kept; every call re-derives the selection.
func (r *TeamResolver) pickAvailableUser(ctx context.Context, teamID string) *domain.User {
	users, err := r.teams.FindAvailableUsers(ctx, teamID)
	if err != nil {
		r.logger.Warn("failed to list available users", zap.String("team_id", teamID), zap.Error(err))
		return nil
	}
	if len(users) == 0 {
		r.logger.Warn("no available users found in team", zap.String("team_id", teamID))
		return nil
	}
	for i := range users {
		if users[i].Role == domain.RoleAgent {
			return &users[i]
		}
	}
	return &users[0]
}

// canonicalTeamName maps a free-text team name onto one of the canonical
// names, defaulting to "<Capitalized input> Team".
func canonicalTeamName(name string) string {
	if _, ok := domain.CanonicalTeamDescriptions[name]; ok {
		return name
	}
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "support"):
		return domain.TeamSupport
	case strings.Contains(lower, "billing"):
		return domain.TeamBilling
	case strings.Contains(lower, "technical"):
		return domain.TeamTechnical
	case strings.Contains(lower, "operations"):
		return domain.TeamOperations
	case strings.Contains(lower, "product"):
		return domain.TeamProduct
	case strings.Contains(lower, "escalat"):
		return domain.TeamEscalations
	}
	if lower == "" {
		return domain.TeamSupport
	}
	return strings.ToUpper(lower[:1]) + lower[1:] + " Team"
}
