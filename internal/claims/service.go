// Package claims manages user claim sets and the license lifecycle. Every
// mutation writes the identity directory first, then the mirror document,
// one awaited call at a time.
package claims

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"meetsync/internal/authz"
	"meetsync/internal/identity"
	"meetsync/internal/store"
	"meetsync/pkg/middleware"
	"meetsync/pkg/problems"
)

type Service struct {
	dir   identity.Directory
	docs  store.Store
	authz *authz.Authorizer
	log   *zap.SugaredLogger
}

func NewService(dir identity.Directory, docs store.Store, az *authz.Authorizer, log *zap.SugaredLogger) *Service {
	return &Service{dir: dir, docs: docs, authz: az, log: log}
}

// check runs the shared precondition ladder. Order matters: an anonymous
// caller learns nothing about whether the target exists.
func (s *Service) check(ctx context.Context, caller middleware.Identity, authed bool, userID string) (identity.User, problems.Result) {
	if !authed {
		return identity.User{}, problems.Err(problems.Unauthenticated, "authentication required")
	}
	if !s.authz.AllowAdmin(ctx, caller, "") {
		return identity.User{}, problems.Err(problems.PermissionDenied, "admin claim required")
	}
	u, err := s.dir.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return identity.User{}, problems.Err(problems.NotFound, "user not found")
		}
		return identity.User{}, problems.Err(problems.Internal, "directory lookup failed")
	}
	return u, problems.OK(nil)
}

// UpdateClaims overwrites the supplied claim keys on the target user,
// leaving other claims untouched. Replaying the same patch is a no-op.
func (s *Service) UpdateClaims(ctx context.Context, caller middleware.Identity, authed bool, userID string, patch map[string]any) problems.Result {
	u, res := s.check(ctx, caller, authed, userID)
	if !res.IsSuccess() {
		return res
	}
	merged := make(map[string]any, len(u.Claims)+len(patch))
	for k, v := range u.Claims {
		merged[k] = v
	}
	for k, v := range patch {
		merged[k] = v
	}
	if err := s.dir.SetClaims(ctx, userID, merged); err != nil {
		s.log.Errorw("set claims", "err", err, "user", userID)
		return problems.Err(problems.Internal, "claims update failed")
	}
	if err := s.docs.Merge(ctx, store.UserPath(caller.TenantID, userID), map[string]any{"claims": merged}); err != nil {
		s.log.Errorw("claims mirror merge", "err", err, "user", userID)
		return problems.Err(problems.Internal, "claims mirror update failed")
	}
	s.log.Infow("claims updated", "user", userID, "by", caller.Subject, "keys", len(patch))
	return problems.OK(map[string]any{"userId": userID})
}

// SetDisabled flips the license switch on the directory record, then
// mirrors it into the user document.
func (s *Service) SetDisabled(ctx context.Context, caller middleware.Identity, authed bool, userID string, disabled bool) problems.Result {
	_, res := s.check(ctx, caller, authed, userID)
	if !res.IsSuccess() {
		return res
	}
	if err := s.dir.SetDisabled(ctx, userID, disabled); err != nil {
		s.log.Errorw("set disabled", "err", err, "user", userID)
		return problems.Err(problems.Internal, "license update failed")
	}
	if err := s.docs.Merge(ctx, store.UserPath(caller.TenantID, userID), map[string]any{"disabled": disabled}); err != nil {
		s.log.Errorw("license mirror merge", "err", err, "user", userID)
		return problems.Err(problems.Internal, "license mirror update failed")
	}
	s.log.Infow("license toggled", "user", userID, "disabled", disabled, "by", caller.Subject)
	return problems.OK(map[string]any{"userId": userID, "disabled": disabled})
}

// DeleteLicense removes the directory record, then the user document tree
// in one store transaction: the mirror and its reserved meetings vanish
// together or not at all.
func (s *Service) DeleteLicense(ctx context.Context, caller middleware.Identity, authed bool, userID string) problems.Result {
	_, res := s.check(ctx, caller, authed, userID)
	if !res.IsSuccess() {
		return res
	}
	if err := s.dir.DeleteUser(ctx, userID); err != nil {
		s.log.Errorw("delete user", "err", err, "user", userID)
		return problems.Err(problems.Internal, "license delete failed")
	}
	err := s.docs.WithTx(ctx, func(tx store.Store) error {
		children, err := tx.List(ctx, store.ReservedMeetingsPrefix(caller.TenantID, userID))
		if err != nil {
			return err
		}
		for _, c := range children {
			if err := tx.Delete(ctx, c.Path); err != nil {
				return err
			}
		}
		return tx.Delete(ctx, store.UserPath(caller.TenantID, userID))
	})
	if err != nil {
		s.log.Errorw("user document cleanup", "err", err, "user", userID)
		return problems.Err(problems.Internal, "license cleanup failed")
	}
	s.log.Infow("license deleted", "user", userID, "by", caller.Subject)
	return problems.OK(map[string]any{"userId": userID})
}
