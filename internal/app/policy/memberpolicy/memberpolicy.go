// Package memberpolicy governs community membership: creating a community,
// joining one by code, and listing its members.
//
// Rules:
//   - Joining requires an existing user and an existing community code
//   - Joining twice is a Conflict wrapping membershipstore.ErrAlreadyMember,
//     whether the second join is caught by the pre-check or by the unique
//     (uid, code) index when two joins race
//   - A community's creator is its first member; both are written as one unit
//   - Only members may list members; anyone else gets NotFound so codes
//     cannot be guessed
package memberpolicy

import (
	"context"
	"errors"

	communitystore "github.com/dalemusser/fieldhub/internal/app/store/communities"
	membershipstore "github.com/dalemusser/fieldhub/internal/app/store/memberships"
	"github.com/dalemusser/fieldhub/internal/app/store/queries/visible"
	userstore "github.com/dalemusser/fieldhub/internal/app/store/users"
	"github.com/dalemusser/fieldhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/fieldhub/internal/app/system/joincode"
	"github.com/dalemusser/fieldhub/internal/app/system/outcome"
	"github.com/dalemusser/fieldhub/internal/app/system/txn"
	"github.com/dalemusser/fieldhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Policy wires the stores membership operations touch.
type Policy struct {
	users       *userstore.Store
	communities *communitystore.Store
	members     *membershipstore.Store
	resolver    *visible.Resolver
	issuer      *joincode.Issuer
	txn         *txn.Runner
	log         *zap.Logger
}

// New builds a Policy over db. When issuer is nil a default one backed by the
// community store is used.
func New(db *mongo.Database, runner *txn.Runner, issuer *joincode.Issuer, logger *zap.Logger) *Policy {
	if logger == nil {
		logger = zap.NewNop()
	}
	communities := communitystore.New(db)
	if issuer == nil {
		issuer = joincode.NewIssuer(communities, logger)
	}
	return &Policy{
		users:       userstore.New(db),
		communities: communities,
		members:     membershipstore.New(db),
		resolver:    visible.New(db),
		issuer:      issuer,
		txn:         runner,
		log:         logger,
	}
}

// Join adds uid to the community with code and returns the enriched
// membership.
func (p *Policy) Join(ctx context.Context, uid, code string) (models.Membership, error) {
	if _, err := p.users.GetByUID(ctx, uid); err != nil {
		return models.Membership{}, err
	}
	if _, err := p.communities.GetByCode(ctx, code); err != nil {
		return models.Membership{}, err
	}

	ok, err := p.members.Exists(ctx, uid, code)
	if err != nil {
		return models.Membership{}, err
	}
	if ok {
		return models.Membership{}, outcome.Conflict("memberships.join", membershipstore.ErrAlreadyMember,
			"user %s is already a member of community %s", uid, code)
	}

	// The unique (uid, code) index settles a race the check above lost.
	if _, err := p.members.Add(ctx, uid, code); err != nil {
		return models.Membership{}, err
	}
	p.log.Info("user joined community", zap.String("uid", uid), zap.String("code", code))

	return p.resolver.Membership(ctx, uid, code)
}

// NewCommunity is the caller-supplied part of a community.
type NewCommunity struct {
	Name        string
	Description string
	ImageURL    string
}

// CreateCommunity issues a fresh code, stores the community with the
// creator's display name as owner, and joins the creator. A code taken
// between issue and insert is redrawn.
func (p *Policy) CreateCommunity(ctx context.Context, uid string, in NewCommunity) (models.Community, error) {
	creator, err := p.users.GetByUID(ctx, uid)
	if err != nil {
		return models.Community{}, err
	}
	name := htmlsanitize.Text(in.Name)
	if name == "" {
		return models.Community{}, outcome.Malformed("communities.create", "name is required")
	}

	attempts := p.issuer.Attempts
	if attempts <= 0 {
		attempts = joincode.DefaultAttempts
	}
	for i := 0; i < attempts; i++ {
		code, err := p.issuer.Issue(ctx)
		if err != nil {
			if errors.Is(err, joincode.ErrExhausted) {
				return models.Community{}, outcome.Conflict("communities.create", err, "could not issue a unique community code")
			}
			return models.Community{}, err
		}

		c := models.Community{
			Code:        code,
			Owner:       creator.Name,
			Name:        name,
			Description: htmlsanitize.Text(in.Description),
			ImageURL:    in.ImageURL,
		}
		var created models.Community
		err = p.txn.Run(ctx, func(ctx context.Context) error {
			var err error
			if created, err = p.communities.Create(ctx, c); err != nil {
				return err
			}
			_, err = p.members.Add(ctx, uid, code)
			return err
		}, func(ctx context.Context) error {
			// A duplicate code belongs to someone else; only undo our own insert.
			if created.Code == "" {
				return nil
			}
			return errors.Join(
				p.members.Remove(ctx, uid, code),
				p.communities.Delete(ctx, code),
			)
		})
		if errors.Is(err, communitystore.ErrDuplicateCode) {
			p.log.Info("community code taken at insert, redrawing", zap.Int("attempt", i+1))
			continue
		}
		if err != nil {
			return models.Community{}, err
		}
		p.log.Info("community created", zap.String("uid", uid), zap.String("code", code))
		return created, nil
	}
	return models.Community{}, outcome.Conflict("communities.create", joincode.ErrExhausted, "could not issue a unique community code")
}

// Members lists the users in code. uid must be a member.
func (p *Policy) Members(ctx context.Context, uid, code string) ([]models.User, error) {
	ok, err := p.members.Exists(ctx, uid, code)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, outcome.NotFound("communities.members", "no community %s", code)
	}
	uids, err := p.members.UIDsForCommunity(ctx, code)
	if err != nil {
		return nil, err
	}
	return p.users.ListByUIDs(ctx, uids)
}

// Communities lists the communities uid belongs to.
func (p *Policy) Communities(ctx context.Context, uid string) ([]models.Community, error) {
	return p.resolver.Communities(ctx, uid)
}
