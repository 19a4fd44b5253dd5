package service

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/sakif/newsdesk/internal/apperror"
	"github.com/sakif/newsdesk/internal/auth"
	"github.com/sakif/newsdesk/internal/model"
	"github.com/sakif/newsdesk/internal/repository"
)

// UserSortField names a column of the admin user list.
type UserSortField string

const (
	SortByName        UserSortField = "name"
	SortByEmail       UserSortField = "email"
	SortByRole        UserSortField = "role"
	SortByCreatedAt   UserSortField = "createdAt"
	SortByLastLoginAt UserSortField = "lastLoginAt"
)

// UserFilter narrows and orders ListUsers. The zero value lists everyone,
// oldest account first; DefaultUserFilter is newest first.
type UserFilter struct {
	Role      model.Role
	Search    string
	SortField UserSortField
	SortDesc  bool
}

var DefaultUserFilter = UserFilter{SortField: SortByCreatedAt, SortDesc: true}

// UserManagementService is the admin console. Every method re-reads the
// requester and refuses non-admins with ErrUnauthorized.
type UserManagementService struct {
	repos     repository.Provider
	validator *auth.Validator
	logger    *slog.Logger
	now       func() time.Time
}

func NewUserManagementService(repos repository.Provider, logger *slog.Logger) *UserManagementService {
	return &UserManagementService{repos: repos, validator: auth.NewValidator(), logger: logger, now: time.Now}
}

func (s *UserManagementService) ListUsers(ctx context.Context, requesterID string, filter UserFilter) ([]model.User, error) {
	users, err := s.requireAdmin(ctx, requesterID, "Only administrators can view user list")
	if err != nil {
		return nil, err
	}

	all, err := users.FindAll(ctx)
	if err != nil {
		return nil, storageErr("Failed to load users", err)
	}

	query := strings.ToLower(strings.TrimSpace(filter.Search))
	list := make([]model.User, 0, len(all))
	for _, u := range all {
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(u.Name), query) &&
			!strings.Contains(strings.ToLower(u.Email), query) {
			continue
		}
		list = append(list, u.Public())
	}

	compare := userComparator(filter.SortField)
	slices.SortStableFunc(list, func(a, b model.User) int {
		if c := compare(a, b); c != 0 {
			if filter.SortDesc {
				return -c
			}
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return list, nil
}

func userComparator(field UserSortField) func(a, b model.User) int {
	switch field {
	case SortByEmail:
		return func(a, b model.User) int { return cmp.Compare(strings.ToLower(a.Email), strings.ToLower(b.Email)) }
	case SortByRole:
		return func(a, b model.User) int { return cmp.Compare(a.Role, b.Role) }
	case SortByCreatedAt:
		return func(a, b model.User) int { return a.CreatedAt.Compare(b.CreatedAt) }
	case SortByLastLoginAt:
		// Never logged in sorts as the epoch, i.e. first when ascending.
		return func(a, b model.User) int { return lastLogin(a).Compare(lastLogin(b)) }
	default:
		return func(a, b model.User) int { return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)) }
	}
}

func lastLogin(u model.User) time.Time {
	if u.LastLoginAt == nil {
		return time.Time{}
	}
	return *u.LastLoginAt
}

// UpdateUserRole changes userID's role.
//
// The last remaining admin cannot be demoted, and that check comes before
// the "not your own role" check: a sole admin trying to demote themself is
// told about the last-admin rule.
func (s *UserManagementService) UpdateUserRole(ctx context.Context, requesterID, userID string, role model.Role) (*model.User, error) {
	users, err := s.requireAdmin(ctx, requesterID, "Only administrators can modify user roles")
	if err != nil {
		return nil, err
	}
	if fields := s.validator.Struct(model.RoleUpdate{Role: role}); fields != nil {
		return nil, apperror.InvalidParameter("role", fields["role"])
	}

	target, err := s.findTarget(ctx, users, userID)
	if err != nil {
		return nil, err
	}

	if target.IsAdmin() && role != model.RoleAdmin {
		if err := s.keepOneAdmin(ctx, users, "Cannot demote the last administrator"); err != nil {
			return nil, err
		}
	}
	if requesterID == userID {
		return nil, apperror.CannotModifySelf("You cannot modify your own role")
	}

	updated, err := users.Update(ctx, userID, model.UserPatch{Role: &role})
	if err != nil {
		return nil, storageErr("Failed to update user role", err)
	}

	s.logger.Info("user role changed",
		slog.String("userID", userID),
		slog.String("role", string(role)),
		slog.String("by", requesterID),
	)
	public := updated.Public()
	return &public, nil
}

// DeleteUser removes userID and all of their sessions in one transaction.
// The checks run in the same order as UpdateUserRole.
func (s *UserManagementService) DeleteUser(ctx context.Context, requesterID, userID string) error {
	users, err := s.requireAdmin(ctx, requesterID, "Only administrators can delete users")
	if err != nil {
		return err
	}

	target, err := s.findTarget(ctx, users, userID)
	if err != nil {
		return err
	}
	if target.IsAdmin() {
		if err := s.keepOneAdmin(ctx, users, "Cannot delete the last administrator"); err != nil {
			return err
		}
	}
	if requesterID == userID {
		return apperror.CannotModifySelf("You cannot delete your own account")
	}

	sessions, err := users.DeleteCascade(ctx, userID)
	if err != nil {
		return storageErr("Failed to delete user", err)
	}

	s.logger.Info("user deleted",
		slog.String("userID", userID),
		slog.Int("sessions", sessions),
		slog.String("by", requesterID),
	)
	return nil
}

func (s *UserManagementService) GetUserStatistics(ctx context.Context, requesterID string) (*model.UserStatistics, error) {
	users, err := s.requireAdmin(ctx, requesterID, "Only administrators can view user statistics")
	if err != nil {
		return nil, err
	}

	all, err := users.FindAll(ctx)
	if err != nil {
		return nil, storageErr("Failed to load users", err)
	}

	now := s.now()
	weekAgo := now.Add(-7 * 24 * time.Hour)
	monthAgo := now.Add(-30 * 24 * time.Hour)

	stats := &model.UserStatistics{TotalUsers: len(all)}
	for _, u := range all {
		switch u.Role {
		case model.RoleAdmin:
			stats.AdminUsers++
		case model.RoleUser:
			stats.RegularUsers++
		}
		if u.CreatedAt.After(weekAgo) {
			stats.RecentSignups++
		}
		if u.LastLoginAt != nil && u.LastLoginAt.After(monthAgo) {
			stats.ActiveUsers++
		}
	}
	return stats, nil
}

func (s *UserManagementService) requireAdmin(ctx context.Context, requesterID, message string) (repository.UserRepository, error) {
	users, err := s.repos.Users(ctx)
	if err != nil {
		return nil, storageErr("Failed to load users", err)
	}
	requester, err := users.FindByID(ctx, requesterID)
	if err != nil {
		return nil, storageErr("Failed to load users", err)
	}
	if requester == nil || !requester.IsAdmin() {
		return nil, apperror.Unauthorized(message)
	}
	return users, nil
}

func (s *UserManagementService) findTarget(ctx context.Context, users repository.UserRepository, userID string) (*model.StoredUser, error) {
	target, err := users.FindByID(ctx, userID)
	if err != nil {
		return nil, storageErr("Failed to load user", err)
	}
	if target == nil {
		return nil, apperror.UserNotFound("User not found")
	}
	return target, nil
}

func (s *UserManagementService) keepOneAdmin(ctx context.Context, users repository.UserRepository, message string) error {
	admins, err := users.CountByRole(ctx, model.RoleAdmin)
	if err != nil {
		return storageErr("Failed to count administrators", err)
	}
	if admins <= 1 {
		return apperror.CannotDeleteLastAdmin(message)
	}
	return nil
}
