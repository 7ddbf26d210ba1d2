package access

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tilldesk/tilldesk-backend/pkg/enums"
	pkgerrors "github.com/tilldesk/tilldesk-backend/pkg/errors"
)

// ScopeRef identifies one node in the Company → Brand → Shop tree.
type ScopeRef struct {
	Scope enums.Scope `json:"scope"`
	ID    int64       `json:"scope_id"`
}

// DirectGrant is the raw stored grant a MembershipStore returns for one
// user at one scope. Deactivated rows are never returned; expiry is
// checked here so a single clock decides.
type DirectGrant struct {
	Role      enums.Role
	ExpiresAt *time.Time
}

// EffectiveAccess is the outcome of resolution: the most privileged role
// applicable to the target, where it came from, and at which scope.
type EffectiveAccess struct {
	Role          enums.Role        `json:"role"`
	Source        enums.GrantSource `json:"source"`
	OriginScope   enums.Scope       `json:"origin_scope"`
	OriginScopeID int64             `json:"origin_scope_id"`
}

// MembershipStore is the read surface the resolver needs. A nil result
// with a nil error means "looked and found nothing"; a non-nil error
// means the store failed and the caller must fail closed, never treating
// the failure as an empty result.
type MembershipStore interface {
	GetDirectGrant(ctx context.Context, userID uuid.UUID, ref ScopeRef) (*DirectGrant, error)
	GetAncestor(ctx context.Context, ref ScopeRef) (*ScopeRef, error)
	GetTeamOwnership(ctx context.Context, companyID int64, userID uuid.UUID) (bool, error)
}

// Resolver decides whether a user may act on a company, brand, or shop.
// It is stateless and safe for concurrent use; each call is a fixed-depth
// walk of at most three membership lookups plus the team ownership check.
type Resolver struct {
	store MembershipStore
	now   func() time.Time
}

// NewResolver builds a resolver over the provided membership store.
func NewResolver(store MembershipStore) (*Resolver, error) {
	if store == nil {
		return nil, fmt.Errorf("membership store is required")
	}
	return &Resolver{store: store, now: time.Now}, nil
}

type candidate struct {
	role enums.Role
	ref  ScopeRef
}

// Resolve walks the target's ancestor chain and returns the highest
// privilege grant found, or nil when the user holds no qualifying grant
// anywhere on the chain. Inheritance only ever adds privilege: a weaker
// direct grant at the target never shadows a stronger ancestor grant.
// Rank ties keep the most specific scope as origin for audit clarity.
func (r *Resolver) Resolve(ctx context.Context, userID uuid.UUID, ref ScopeRef) (*EffectiveAccess, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if !ref.Scope.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid scope")
	}
	if ref.ID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid scope id")
	}

	chain, err := r.ancestorChain(ctx, ref)
	if err != nil {
		return nil, err
	}

	candidates := make([]candidate, 0, len(chain)+1)
	for _, level := range chain {
		grant, err := r.store.GetDirectGrant(ctx, userID, level)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "membership lookup failed")
		}
		if grant == nil || r.expired(grant) {
			continue
		}
		candidates = append(candidates, candidate{role: grant.Role, ref: level})
	}

	// Leadership of the company's owning team counts as an implicit
	// owner grant at company level.
	top := chain[len(chain)-1]
	if top.Scope == enums.ScopeCompany {
		owns, err := r.store.GetTeamOwnership(ctx, top.ID, userID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "team ownership lookup failed")
		}
		if owns {
			candidates = append(candidates, candidate{role: enums.RoleOwner, ref: top})
		}
	}

	if len(candidates) == 0 {
		return nil, nil
	}

	// Candidates are ordered target-first; strict comparison keeps the
	// deepest scope on rank ties.
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.role.MorePrivilegedThan(best.role) {
			best = c
		}
	}

	source := enums.GrantSourceInherited
	if best.ref == ref {
		source = enums.GrantSourceDirect
	}

	return &EffectiveAccess{
		Role:          best.role,
		Source:        source,
		OriginScope:   best.ref.Scope,
		OriginScopeID: best.ref.ID,
	}, nil
}

// HasAccess reports whether the user's effective role at the target
// satisfies the minimum role. Store failures propagate; they are never
// reported as a plain denial.
func (r *Resolver) HasAccess(ctx context.Context, userID uuid.UUID, ref ScopeRef, minimum enums.Role) (bool, error) {
	if !minimum.IsValid() {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "invalid minimum role")
	}
	effective, err := r.Resolve(ctx, userID, ref)
	if err != nil {
		return false, err
	}
	if effective == nil {
		return false, nil
	}
	return effective.Role.Satisfies(minimum), nil
}

// CanModify reports whether the user clears the bar the caller fixed for
// mutating operations at the target. Which role a given operation
// requires is route policy, not resolver policy.
func (r *Resolver) CanModify(ctx context.Context, userID uuid.UUID, ref ScopeRef, required enums.Role) (bool, error) {
	return r.HasAccess(ctx, userID, ref, required)
}

// ancestorChain returns the refs from the target up to its company.
// The tree has fixed depth, so the walk does at most two lookups.
func (r *Resolver) ancestorChain(ctx context.Context, ref ScopeRef) ([]ScopeRef, error) {
	chain := []ScopeRef{ref}
	current := ref
	for current.Scope != enums.ScopeCompany {
		parent, err := r.store.GetAncestor(ctx, current)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "ancestor lookup failed")
		}
		if parent == nil {
			// Orphaned or unknown scope id: resolution still checks the
			// levels it reached.
			break
		}
		chain = append(chain, *parent)
		current = *parent
	}
	return chain, nil
}

func (r *Resolver) expired(grant *DirectGrant) bool {
	return grant.ExpiresAt != nil && !grant.ExpiresAt.After(r.now())
}
