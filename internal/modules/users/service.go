package users

import (
	"context"
	"errors"
	"strconv"

	"repairhub/internal/domain"
	"repairhub/internal/guard"
	"repairhub/internal/pkg/apperr"
	"repairhub/internal/pkg/datatable"
	"repairhub/internal/pkg/validator"
	"repairhub/internal/rbac"
	"repairhub/internal/repository"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Service struct {
	accounts AccountRepository
	guard    Authorizer
	notifier SessionNotifier
	log      *zap.Logger
}

func NewService(accounts AccountRepository, g Authorizer, notifier SessionNotifier, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{accounts: accounts, guard: g, notifier: notifier, log: log}
}

func normalizePage(page, limit int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return page, limit
}

// GetUserList returns one page of accounts, newest first. Staff below
// administrator only ever see customer accounts.
func (s *Service) GetUserList(ctx context.Context, requesterID int64, f UserFilter, page, limit int) (*UserList, error) {
	requester, err := s.guard.Authorize(ctx, requesterID, guard.ListUsers, nil)
	if err != nil {
		return nil, err
	}
	page, limit = normalizePage(page, limit)

	admin := rbac.Resolve(requester).AtLeast(rbac.Admin)
	isStaff := f.IsStaff
	if !admin {
		customersOnly := false
		isStaff = &customersOnly
	}

	accounts, total, err := s.accounts.List(ctx, repository.AccountFilter{
		Search:       f.Search,
		IsStaff:      isStaff,
		IsActive:     f.IsActive,
		Blocked:      f.Blocked,
		StaffRole:    f.StaffRole,
		CustomerRole: f.CustomerRole,
		Limit:        limit,
		Offset:       (page - 1) * limit,
	})
	if err != nil {
		return nil, apperr.Internal("list users", err)
	}

	items := make([]*UserResponse, 0, len(accounts))
	for i := range accounts {
		items = append(items, toUserResponse(&accounts[i]))
	}
	rows := userTable(requester, admin).Apply(items, datatable.Query{PageSize: limit})

	return &UserList{Users: rows.Rows, Total: total, Page: page, Limit: limit}, nil
}

// userTable attaches the dashboard actions the requester may take on each
// row. The service re-checks every one of them when invoked.
func userTable(requester *domain.Account, admin bool) *datatable.Table[*UserResponse] {
	self := func(u *UserResponse) bool { return u.ID == requester.ID }
	staffOnly := func(u *UserResponse) bool { return u.IsStaff && !admin }
	selfOrStaff := func(u *UserResponse) bool { return self(u) || staffOnly(u) }

	columns := []datatable.Column[*UserResponse]{{
		Key:   "id",
		Value: func(u *UserResponse) string { return strconv.FormatInt(u.ID, 10) },
	}}
	actions := []datatable.Action[*UserResponse]{
		{Name: "edit", Label: "Edit", Disabled: staffOnly},
		{Name: "toggle-status", Label: "Toggle status", Disabled: selfOrStaff},
		{
			Name:     "deactivate",
			Label:    "Deactivate",
			Hidden:   func(u *UserResponse) bool { return !u.IsActive },
			Disabled: selfOrStaff,
		},
		{
			Name:     "restore",
			Label:    "Restore",
			Hidden:   func(u *UserResponse) bool { return u.IsActive && !u.Blocked },
			Disabled: staffOnly,
		},
		{
			Name:     "delete",
			Label:    "Delete permanently",
			Hidden:   func(*UserResponse) bool { return !admin },
			Disabled: self,
		},
	}
	return datatable.New(columns, actions...)
}

// loadTarget authorizes the operation's baseline, then loads the target and
// re-checks the rule against it.
func (s *Service) loadTarget(ctx context.Context, requesterID, id int64, op guard.Operation) (*domain.Account, *domain.Account, error) {
	requester, err := s.guard.Authorize(ctx, requesterID, op, nil)
	if err != nil {
		return nil, nil, err
	}
	target, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, apperr.NotFound("user")
		}
		return nil, nil, apperr.Internal("load user", err)
	}
	return requester, target, nil
}

func (s *Service) GetUserWithProfile(ctx context.Context, requesterID, id int64) (*UserResponse, error) {
	requester, target, err := s.loadTarget(ctx, requesterID, id, guard.ViewUser)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Allow(requester, guard.ViewUser, guard.TargetFor(target)); err != nil {
		return nil, err
	}
	return toUserResponse(target), nil
}

func (s *Service) CreateUser(ctx context.Context, requesterID int64, req CreateUserRequest) (*UserResponse, error) {
	if _, err := s.guard.Authorize(ctx, requesterID, guard.CreateUser,
		&guard.Target{IsStaff: req.IsStaff, ChangesPrivileges: req.IsStaff}); err != nil {
		return nil, err
	}
	if err := validator.Validate(req); err != nil {
		return nil, err
	}

	a := &domain.Account{
		Email:            req.Email,
		Name:             req.Name,
		Phone:            req.Phone,
		Image:            req.Image,
		PreferredContact: req.PreferredContact,
		IsStaff:          req.IsStaff,
		IsActive:         true,
	}
	if req.IsStaff {
		if req.StaffProfile == nil {
			return nil, apperr.Validation("staff accounts need a staff profile", map[string]string{"staff_profile": "required"})
		}
		a.IsSuperuser = domain.SuperuserFor(req.StaffProfile.Role)
		a.Profile = &domain.StaffProfile{
			Role:            req.StaffProfile.Role,
			Specializations: req.StaffProfile.Specializations,
			Availability:    req.StaffProfile.Availability,
		}
	} else {
		cp := &domain.CustomerProfile{Role: domain.CustomerIndividual}
		if in := req.CustomerProfile; in != nil {
			cp.Role = in.Role
			cp.CompanyName = in.CompanyName
			cp.Address = in.Address
			cp.Notes = in.Notes
		}
		a.Profile = cp
	}

	if err := s.accounts.Create(ctx, a); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict("a user with email %q already exists", req.Email)
		}
		return nil, apperr.Internal("create user", err)
	}

	s.log.Info("user created",
		zap.Int64("user_id", a.ID),
		zap.Int64("by", requesterID),
		zap.Bool("is_staff", a.IsStaff),
	)
	return toUserResponse(a), nil
}

func (s *Service) UpdateUser(ctx context.Context, requesterID, id int64, req UpdateUserRequest) (*UserResponse, error) {
	requester, target, err := s.loadTarget(ctx, requesterID, id, guard.UpdateUser)
	if err != nil {
		return nil, err
	}

	changesKind := req.IsStaff != nil && *req.IsStaff != target.IsStaff
	changesPrivileges := changesKind || req.StaffRole != nil
	if err := s.guard.Allow(requester, guard.UpdateUser, &guard.Target{
		AccountID:         target.ID,
		IsStaff:           target.IsStaff || (req.IsStaff != nil && *req.IsStaff),
		ChangesPrivileges: changesPrivileges,
	}); err != nil {
		return nil, err
	}
	if err := validator.Validate(req); err != nil {
		return nil, err
	}

	applyContact(target, req.Name, req.Phone, req.Image, req.PreferredContact)
	if req.Email != nil {
		target.Email = *req.Email
	}

	if changesKind {
		if err := switchKind(target, req); err != nil {
			return nil, err
		}
	} else if req.StaffRole != nil && target.StaffProfile() == nil {
		return nil, apperr.Validation("customer accounts have no staff role", map[string]string{"staff_role": "invalid"})
	}

	if sp := target.StaffProfile(); sp != nil {
		if req.StaffRole != nil {
			sp.Role = *req.StaffRole
			target.IsSuperuser = domain.SuperuserFor(sp.Role)
		}
		if req.Specializations != nil {
			sp.Specializations = *req.Specializations
		}
		if req.Availability != nil {
			sp.Availability = req.Availability
		}
	}
	if cp := target.CustomerProfile(); cp != nil {
		if req.CustomerRole != nil {
			cp.Role = *req.CustomerRole
		}
		applyCustomer(cp, req.CompanyName, req.Address, req.Notes)
	}

	if err := s.save(ctx, target); err != nil {
		return nil, err
	}
	s.notify(ctx, target.ID)
	return toUserResponse(target), nil
}

// switchKind replaces the target's profile with one of the other kind.
func switchKind(a *domain.Account, req UpdateUserRequest) error {
	if *req.IsStaff {
		if req.StaffRole == nil {
			return apperr.Validation("a staff role is required", map[string]string{"staff_role": "required"})
		}
		a.IsStaff = true
		a.IsSuperuser = domain.SuperuserFor(*req.StaffRole)
		a.Profile = &domain.StaffProfile{Role: *req.StaffRole}
		return nil
	}
	role := domain.CustomerIndividual
	if req.CustomerRole != nil {
		role = *req.CustomerRole
	}
	a.IsStaff = false
	a.IsSuperuser = false
	a.Profile = &domain.CustomerProfile{Role: role}
	return nil
}

func applyContact(a *domain.Account, name, phone, image *string, contact *domain.ContactMethod) {
	if name != nil {
		a.Name = *name
	}
	if phone != nil {
		a.Phone = phone
	}
	if image != nil {
		a.Image = image
	}
	if contact != nil {
		a.PreferredContact = *contact
	}
}

func applyCustomer(cp *domain.CustomerProfile, company, address, notes *string) {
	if company != nil {
		cp.CompanyName = company
	}
	if address != nil {
		cp.Address = address
	}
	if notes != nil {
		cp.Notes = notes
	}
}

func (s *Service) save(ctx context.Context, a *domain.Account) error {
	if err := s.accounts.Update(ctx, a); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return apperr.Conflict("a user with email %q already exists", a.Email)
		case errors.Is(err, repository.ErrNotFound):
			return apperr.NotFound("user")
		}
		return apperr.Internal("update user", err)
	}
	return nil
}

// SoftDeleteUser deactivates and blocks the account. It can be undone with
// RestoreUser.
func (s *Service) SoftDeleteUser(ctx context.Context, requesterID, id int64) error {
	return s.setStatus(ctx, requesterID, id, guard.SoftDeleteUser, false, true)
}

// RestoreUser reactivates and unblocks the account. Restoring an active
// account changes nothing.
func (s *Service) RestoreUser(ctx context.Context, requesterID, id int64) (*UserResponse, error) {
	if err := s.setStatus(ctx, requesterID, id, guard.RestoreUser, true, false); err != nil {
		return nil, err
	}
	a, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Internal("load user", err)
	}
	return toUserResponse(a), nil
}

// ToggleUserStatus flips is_active. Activating also clears the block;
// deactivating leaves it as it was.
func (s *Service) ToggleUserStatus(ctx context.Context, requesterID, id int64) (*UserResponse, error) {
	requester, target, err := s.loadTarget(ctx, requesterID, id, guard.ToggleUserStatus)
	if err != nil {
		return nil, err
	}
	active := !target.IsActive
	t := guard.TargetFor(target)
	t.Deactivates = !active
	if err := s.guard.Allow(requester, guard.ToggleUserStatus, t); err != nil {
		return nil, err
	}

	blocked := target.Blocked
	if active {
		blocked = false
	}
	if err := s.accounts.SetStatus(ctx, id, active, blocked); err != nil {
		return nil, apperr.Internal("toggle user status", err)
	}
	target.IsActive, target.Blocked = active, blocked
	s.notify(ctx, id)
	return toUserResponse(target), nil
}

func (s *Service) setStatus(ctx context.Context, requesterID, id int64, op guard.Operation, active, blocked bool) error {
	requester, target, err := s.loadTarget(ctx, requesterID, id, op)
	if err != nil {
		return err
	}
	t := guard.TargetFor(target)
	t.Deactivates = !active
	if err := s.guard.Allow(requester, op, t); err != nil {
		return err
	}
	if err := s.accounts.SetStatus(ctx, id, active, blocked); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("user")
		}
		return apperr.Internal(string(op), err)
	}
	s.log.Info("user status changed",
		zap.String("operation", string(op)),
		zap.Int64("user_id", id),
		zap.Int64("by", requesterID),
	)
	s.notify(ctx, id)
	return nil
}

// HardDeleteUser removes the account, its profile and everything it owns.
func (s *Service) HardDeleteUser(ctx context.Context, requesterID, id int64) error {
	requester, target, err := s.loadTarget(ctx, requesterID, id, guard.HardDeleteUser)
	if err != nil {
		return err
	}
	if err := s.guard.Allow(requester, guard.HardDeleteUser, guard.TargetFor(target)); err != nil {
		return err
	}
	if err := s.accounts.HardDelete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("user")
		}
		return apperr.Internal("delete user", err)
	}
	s.log.Warn("user permanently deleted", zap.Int64("user_id", id), zap.Int64("by", requesterID))
	s.notify(ctx, id)
	return nil
}

func (s *Service) GetUserStats(ctx context.Context, requesterID int64) (*UserStats, error) {
	if _, err := s.guard.Authorize(ctx, requesterID, guard.ViewUserStats, nil); err != nil {
		return nil, err
	}

	yes, no := true, false
	var stats UserStats
	g, gctx := errgroup.WithContext(ctx)
	count := func(dst *int64, f repository.AccountFilter) {
		g.Go(func() error {
			n, err := s.accounts.Count(gctx, f)
			if err != nil {
				return err
			}
			*dst = n
			return nil
		})
	}
	count(&stats.TotalUsers, repository.AccountFilter{})
	count(&stats.ActiveUsers, repository.AccountFilter{IsActive: &yes})
	count(&stats.BlockedUsers, repository.AccountFilter{Blocked: &yes})
	count(&stats.StaffUsers, repository.AccountFilter{IsStaff: &yes})
	count(&stats.CustomerUsers, repository.AccountFilter{IsStaff: &no})

	if err := g.Wait(); err != nil {
		return nil, apperr.Internal("user stats", err)
	}
	return &stats, nil
}

func (s *Service) GetMyProfile(ctx context.Context, requesterID int64) (*UserResponse, error) {
	me, err := s.guard.Authorize(ctx, requesterID, guard.ViewOwnProfile, nil)
	if err != nil {
		return nil, err
	}
	return toUserResponse(me), nil
}

func (s *Service) UpdateMyProfile(ctx context.Context, requesterID int64, req UpdateMyProfileRequest) (*UserResponse, error) {
	me, err := s.guard.Authorize(ctx, requesterID, guard.UpdateOwnProfile, &guard.Target{AccountID: requesterID})
	if err != nil {
		return nil, err
	}
	if err := validator.Validate(req); err != nil {
		return nil, err
	}

	applyContact(me, req.Name, req.Phone, req.Image, req.PreferredContact)
	if sp := me.StaffProfile(); sp != nil {
		if req.Specializations != nil {
			sp.Specializations = *req.Specializations
		}
		if req.Availability != nil {
			sp.Availability = req.Availability
		}
	}
	if cp := me.CustomerProfile(); cp != nil {
		applyCustomer(cp, req.CompanyName, req.Address, req.Notes)
	}

	if err := s.save(ctx, me); err != nil {
		return nil, err
	}
	s.notify(ctx, me.ID)
	return toUserResponse(me), nil
}

func (s *Service) notify(ctx context.Context, accountID int64) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.AccountChanged(ctx, accountID); err != nil {
		s.log.Warn("session notify failed", zap.Int64("account_id", accountID), zap.Error(err))
	}
}
