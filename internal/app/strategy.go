package app

import "github.com/yourusername/mediafetch-go/internal/domain"

// Strategy is one (egress, credential) pairing tried by a job
type Strategy struct {
	Egress     domain.EgressEndpoint
	Credential domain.CredentialSource
}

// StrategyPlan walks egress candidates in ranked order and, for each, every
// credential candidate in resolver order. The egress list is cut to
// maxEgress up front so one job never re-ranks mid-flight.
type StrategyPlan struct {
	egresses    []domain.EgressEndpoint
	credentials *CredentialIterator
	egressIdx   int
	credIdx     int
	touched     int
}

// NewStrategyPlan creates a plan over the head of ranked
func NewStrategyPlan(ranked []domain.EgressEndpoint, maxEgress int, credentials *CredentialIterator) *StrategyPlan {
	if maxEgress > 0 && len(ranked) > maxEgress {
		ranked = ranked[:maxEgress]
	}
	return &StrategyPlan{egresses: ranked, credentials: credentials}
}

// Next returns the next pairing, or false when the plan is exhausted
func (p *StrategyPlan) Next() (Strategy, bool) {
	for p.egressIdx < len(p.egresses) {
		if cred, ok := p.credentials.At(p.credIdx); ok {
			if p.credIdx == 0 {
				p.touched++
			}
			p.credIdx++
			return Strategy{Egress: p.egresses[p.egressIdx], Credential: cred}, true
		}
		p.egressIdx++
		p.credIdx = 0
	}
	return Strategy{}, false
}

// EgressesTried returns how many distinct egress candidates produced an attempt
func (p *StrategyPlan) EgressesTried() int {
	return p.touched
}
