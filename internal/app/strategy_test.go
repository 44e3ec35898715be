package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/yourusername/mediafetch-go/internal/domain"
	"go.uber.org/zap"
)

func endpoints(addrs ...string) []domain.EgressEndpoint {
	out := make([]domain.EgressEndpoint, len(addrs))
	for i, a := range addrs {
		out[i] = domain.EgressEndpoint{Address: a}
	}
	return out
}

func drain(p *StrategyPlan) []string {
	var out []string
	for {
		s, ok := p.Next()
		if !ok {
			return out
		}
		out = append(out, s.Egress.Address+"/"+string(s.Credential.Kind))
	}
}

func TestStrategyPlan_EgressMajorOrder(t *testing.T) {
	r := newResolver(t, domain.CredentialsConfig{}, nil)
	creds := r.Candidates(context.Background(), testURL, "c=1", nil)

	plan := NewStrategyPlan(endpoints("a", "b", "c"), 2, creds)
	assert.Equal(t, []string{"a/caller", "a/none", "b/caller", "b/none"}, drain(plan))
	assert.Equal(t, 2, plan.EgressesTried())
}

func TestStrategyPlan_NoLimit(t *testing.T) {
	r := newResolver(t, domain.CredentialsConfig{}, nil)
	creds := r.Candidates(context.Background(), testURL, "", nil)

	plan := NewStrategyPlan(endpoints("a", "b", "c"), 0, creds)
	assert.Equal(t, []string{"a/none", "b/none", "c/none"}, drain(plan))
	assert.Equal(t, 3, plan.EgressesTried())
}

func TestStrategyPlan_NoCredentials(t *testing.T) {
	r, err := NewCredentialResolver(&domain.CredentialsConfig{Order: []string{"caller"}}, nil, zap.NewNop())
	assert.NoError(t, err)
	creds := r.Candidates(context.Background(), testURL, "", nil)

	plan := NewStrategyPlan(endpoints("a", "b"), 3, creds)
	assert.Empty(t, drain(plan))
	assert.Zero(t, plan.EgressesTried())
}
