package line

import (
	"fmt"
	"sort"
	"strings"
)

// Rule is a single scheduling criterion.
type Rule int

const (
	RuleFIFO Rule = iota
	RulePriority
	RuleWT
	RuleEDD
	RuleEOD
	RuleNumStages
	RuleRPC
	RuleLPT
	RuleSPT
	RuleMS
	RuleWINQ
)

var ruleNames = map[string]Rule{
	"FIFO":      RuleFIFO,
	"Priority":  RulePriority,
	"WT":        RuleWT,
	"EDD":       RuleEDD,
	"EOD":       RuleEOD,
	"NumStages": RuleNumStages,
	"RPC":       RuleRPC,
	"LPT":       RuleLPT,
	"SPT":       RuleSPT,
	"MS":        RuleMS,
	"WINQ":      RuleWINQ,
}

func (r Rule) String() string {
	for name, v := range ruleNames {
		if v == r {
			return name
		}
	}
	return fmt.Sprintf("Rule(%d)", int(r))
}

// ParseRule returns the Rule named by token.
func ParseRule(token string) (Rule, error) {
	r, ok := ruleNames[token]
	if !ok {
		return 0, fmt.Errorf("unknown scheduling rule %q", token)
	}
	return r, nil
}

// multiCriteriaPrefix marks a composite rule such as "MC-EDD-SPT".
const multiCriteriaPrefix = "MC"

// SchedulingPolicy is an ordered list of criteria. A single-rule policy has one
// criterion; a multi-criteria policy lists them most significant first.
type SchedulingPolicy struct {
	Name     string
	Criteria []Rule
}

// ParseSchedulingPolicy parses a rule name. Empty defaults to FIFO.
func ParseSchedulingPolicy(name string) (SchedulingPolicy, error) {
	if name == "" {
		return SchedulingPolicy{Name: "FIFO", Criteria: []Rule{RuleFIFO}}, nil
	}
	tokens := strings.Split(name, "-")
	if tokens[0] != multiCriteriaPrefix {
		if len(tokens) > 1 {
			return SchedulingPolicy{}, fmt.Errorf("malformed scheduling rule %q: composite rules start with %s-", name, multiCriteriaPrefix)
		}
		r, err := ParseRule(name)
		if err != nil {
			return SchedulingPolicy{}, err
		}
		return SchedulingPolicy{Name: name, Criteria: []Rule{r}}, nil
	}
	if len(tokens) < 2 {
		return SchedulingPolicy{}, fmt.Errorf("malformed scheduling rule %q: no criteria after %s", name, multiCriteriaPrefix)
	}
	criteria := make([]Rule, 0, len(tokens)-1)
	for _, tok := range tokens[1:] {
		r, err := ParseRule(tok)
		if err != nil {
			return SchedulingPolicy{}, fmt.Errorf("scheduling rule %q: %w", name, err)
		}
		criteria = append(criteria, r)
	}
	return SchedulingPolicy{Name: name, Criteria: criteria}, nil
}

// IsValidSchedulingRule reports whether name parses as a scheduling policy.
func IsValidSchedulingRule(name string) bool {
	_, err := ParseSchedulingPolicy(name)
	return err == nil
}

// ValidSchedulingRuleNames returns the single-rule tokens in sorted order.
func ValidSchedulingRuleNames() []string {
	names := make([]string, 0, len(ruleNames))
	for name := range ruleNames {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsMultiCriteria reports whether the policy has more than one criterion.
func (p SchedulingPolicy) IsMultiCriteria() bool {
	return len(p.Criteria) > 1
}

// RuleContext carries the line state some rules read.
type RuleContext struct {
	Now float64
	// QueueLength reports the queue length of a station by id.
	QueueLength func(stationID string) (int, bool)
}

// Descending reports whether larger keys are served first under r.
func (r Rule) Descending() bool {
	switch r {
	case RuleNumStages, RuleRPC, RuleLPT:
		return true
	default:
		return false
	}
}

// entityKey returns the sort key of e under r. FIFO is treated as WT at
// entity level. A nil entity keys to zero.
func entityKey(r Rule, e *Entity, ctx RuleContext) float64 {
	if e == nil {
		return 0
	}
	switch r {
	case RuleFIFO, RuleWT:
		return e.LastScheduleTime()
	case RulePriority:
		return float64(e.Priority)
	case RuleEDD:
		return e.DueDate
	case RuleEOD:
		return e.OrderDate
	case RuleNumStages:
		return float64(len(e.RemainingRoute))
	case RuleRPC:
		return e.RemainingProcessingTime()
	case RuleLPT, RuleSPT:
		return e.NextStepProcessingTime()
	case RuleMS:
		return e.Slack()
	case RuleWINQ:
		return float64(shortestQueue(e.NextDestinations(), ctx))
	default:
		panic(fmt.Sprintf("unhandled scheduling rule %v", r))
	}
}

// shortestQueue returns the smallest queue length among ids, zero when none is known.
func shortestQueue(ids []string, ctx RuleContext) int {
	best := -1
	if ctx.QueueLength == nil {
		return 0
	}
	for _, id := range ids {
		n, ok := ctx.QueueLength(id)
		if !ok {
			continue
		}
		if best < 0 || n < best {
			best = n
		}
	}
	if best < 0 {
		return 0
	}
	return best
}

func stableByKey[T any](items []T, key func(T) float64, descending bool) {
	sort.SliceStable(items, func(i, j int) bool {
		ki, kj := key(items[i]), key(items[j])
		if descending {
			return ki > kj
		}
		return ki < kj
	})
}

// SortEntities orders entities in place. Criteria are applied as successive
// stable passes from least to most significant.
func SortEntities(entities []*Entity, policy SchedulingPolicy, ctx RuleContext) {
	for i := len(policy.Criteria) - 1; i >= 0; i-- {
		r := policy.Criteria[i]
		stableByKey(entities, func(e *Entity) float64 {
			return entityKey(r, e, ctx)
		}, r.Descending())
	}
}

// StationCandidate is a station as seen by an operator during a round.
type StationCandidate struct {
	Station Operated
	// TimeWaiting is how long the station has waited for an operator, or has
	// been idle since its last entity left.
	TimeWaiting float64
	// Entity is the entity the station would work on next.
	Entity   *Entity
	Critical bool
}

// SortStations orders station candidates in place: longest waiting first, then
// the policy criteria from least to most significant, then, when preemptive
// is set, stations holding a critical entity ahead of the rest.
func SortStations(cands []StationCandidate, policy SchedulingPolicy, ctx RuleContext, preemptive bool) {
	byWait := func(c StationCandidate) float64 { return c.TimeWaiting }
	stableByKey(cands, byWait, true)
	for i := len(policy.Criteria) - 1; i >= 0; i-- {
		r := policy.Criteria[i]
		if r == RuleFIFO {
			stableByKey(cands, byWait, true)
			continue
		}
		stableByKey(cands, func(c StationCandidate) float64 {
			return entityKey(r, c.Entity, ctx)
		}, r.Descending())
	}
	if preemptive {
		sort.SliceStable(cands, func(i, j int) bool {
			return cands[i].Critical && !cands[j].Critical
		})
	}
}
