package agents

import (
	"github.com/pthm-cable/pathomove/random"
)

// IntroducePathogen infects the first k agents of a fresh shuffle with a
// vertically acquired infection of duration 1.
func (p *Population) IntroducePathogen(k int, src *random.Source) error {
	if k < 0 || k > p.n {
		return invalidf("cannot seed %d infections in %d agents", k, p.n)
	}

	p.Shuffle(src)
	for _, id := range p.Order[:k] {
		p.Infected[id] = true
		p.TimeInfected[id] = 1
		p.SrcInfect[id] = SourceVertical
	}
	p.CountInfected()
	return nil
}

// PathogenSpread runs one transmission pass. Every agent infected at the start
// of the pass has its infection duration incremented and exposes each
// susceptible neighbour to an independent transmission trial. Agents infected
// during the pass do not transmit until the next pass.
// Returns the number of new infections.
func (p *Population) PathogenSpread(src *random.Source) int {
	sources := make([]int, 0, p.nInfected)
	for i, inf := range p.Infected {
		if inf {
			sources = append(sources, i)
		}
	}
	if len(sources) == 0 {
		return 0
	}

	newInfections := 0
	lists := p.neighbourLists(sources, p.rangeAgents)
	for k, i := range sources {
		p.TimeInfected[i]++
		for _, j := range lists[k] {
			if p.Infected[j] {
				continue
			}
			if src.Bernoulli(p.pTransmit) {
				p.Infected[j] = true
				p.TimeInfected[j] = 1
				p.SrcInfect[j] = SourceHorizontal
				newInfections++
			}
		}
	}

	p.CountInfected()
	return newInfections
}

// PathogenCost charges every infected agent costInfect per unit of infection
// duration. Energy may go negative.
func (p *Population) PathogenCost(costInfect float32) {
	for i, inf := range p.Infected {
		if inf {
			p.Energy[i] -= costInfect * float32(p.TimeInfected[i])
		}
	}
}

// CountInfected recounts and caches the number of infected agents.
func (p *Population) CountInfected() int {
	infected, sourced := 0, 0
	for i, inf := range p.Infected {
		if inf {
			infected++
		}
		if p.SrcInfect[i] != SourceNone {
			sourced++
		}
	}
	p.nInfected = infected

	invariant(p.nInfected <= p.n, "infected count bounded", "%d infected of %d agents", p.nInfected, p.n)
	invariant(sourced == infected, "infection source recorded", "%d infected agents but %d infection sources", infected, sourced)
	return p.nInfected
}

// NInfected returns the infected count as of the last CountInfected.
func (p *Population) NInfected() int {
	return p.nInfected
}

// PropSrcInfection returns the fraction of infected agents infected horizontally,
// or 0 if no agent is infected.
func (p *Population) PropSrcInfection() float64 {
	vertical, horizontal := 0, 0
	for i, inf := range p.Infected {
		if !inf {
			continue
		}
		switch p.SrcInfect[i] {
		case SourceVertical:
			vertical++
		case SourceHorizontal:
			horizontal++
		}
	}
	if vertical+horizontal == 0 {
		return 0
	}
	return float64(horizontal) / float64(vertical+horizontal)
}
