package app

import (
	"context"
	"fmt"

	"github.com/yourusername/mediafetch-go/internal/domain"
	"github.com/yourusername/mediafetch-go/internal/infrastructure"
	"go.uber.org/zap"
)

// CredentialResolver produces the ordered credential candidates for a job
type CredentialResolver struct {
	order       []domain.CredentialKind
	jarPath     string
	session     domain.SessionCookieProvider
	validateJar func(path string) error
	logger      *zap.Logger
}

// NewCredentialResolver parses the configured order; session may be nil
func NewCredentialResolver(config *domain.CredentialsConfig, session domain.SessionCookieProvider, logger *zap.Logger) (*CredentialResolver, error) {
	order := domain.DefaultCredentialOrder
	if len(config.Order) > 0 {
		order = make([]domain.CredentialKind, 0, len(config.Order))
		seen := make(map[domain.CredentialKind]bool)
		for _, raw := range config.Order {
			kind, err := domain.ParseCredentialKind(raw)
			if err != nil {
				return nil, err
			}
			if seen[kind] {
				return nil, fmt.Errorf("credential source %q listed twice", raw)
			}
			seen[kind] = true
			order = append(order, kind)
		}
	}

	return &CredentialResolver{
		order:       order,
		jarPath:     config.CookieJar,
		session:     session,
		validateJar: infrastructure.ValidateCookieJar,
		logger:      logger,
	}, nil
}

// Candidates returns a lazy iterator over the usable sources for target.
// Nothing is resolved until the iterator is advanced.
func (r *CredentialResolver) Candidates(ctx context.Context, target, callerCookie string, sessionPayload map[string]string) *CredentialIterator {
	return &CredentialIterator{
		resolver:       r,
		ctx:            ctx,
		target:         target,
		callerCookie:   callerCookie,
		sessionPayload: sessionPayload,
	}
}

// CredentialIterator resolves sources on demand and remembers them, so later
// egress candidates replay the same sources without another login or jar read
type CredentialIterator struct {
	resolver       *CredentialResolver
	ctx            context.Context
	target         string
	callerCookie   string
	sessionPayload map[string]string

	next     int
	resolved []domain.CredentialSource
}

// At returns the i-th usable source, resolving further kinds as needed.
// ok is false once every kind has been tried.
func (it *CredentialIterator) At(i int) (domain.CredentialSource, bool) {
	for len(it.resolved) <= i && it.next < len(it.resolver.order) {
		kind := it.resolver.order[it.next]
		it.next++
		if src, ok := it.resolve(kind); ok {
			it.resolved = append(it.resolved, src)
		}
	}
	if i < len(it.resolved) {
		return it.resolved[i], true
	}
	return domain.CredentialSource{}, false
}

func (it *CredentialIterator) resolve(kind domain.CredentialKind) (domain.CredentialSource, bool) {
	r := it.resolver
	switch kind {
	case domain.CredentialCaller:
		if it.callerCookie == "" {
			return domain.CredentialSource{}, false
		}
		return domain.CredentialSource{Kind: kind, CookieHeader: it.callerCookie}, true

	case domain.CredentialSession:
		if r.session == nil || len(it.sessionPayload) == 0 {
			return domain.CredentialSource{}, false
		}
		header, err := r.session.SessionCookies(it.ctx, it.target, it.sessionPayload)
		if err != nil {
			r.logger.Warn("Session login failed, skipping session credentials",
				zap.String("url", it.target),
				zap.Error(err))
			return domain.CredentialSource{}, false
		}
		return domain.CredentialSource{Kind: kind, CookieHeader: header}, true

	case domain.CredentialJar:
		if r.jarPath == "" {
			return domain.CredentialSource{}, false
		}
		if err := r.validateJar(r.jarPath); err != nil {
			r.logger.Warn("Cookie jar rejected",
				zap.String("path", r.jarPath),
				zap.Error(err))
			return domain.CredentialSource{}, false
		}
		return domain.CredentialSource{Kind: kind, JarPath: r.jarPath}, true

	default:
		return domain.Anonymous(), true
	}
}
