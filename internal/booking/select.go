package booking

import (
	"errors"

	"go.uber.org/zap"
)

// PolicyKind enumerates the slot selection strategies.
type PolicyKind int

const (
	// AutoAllocate picks the best-ranked available slot automatically.
	AutoAllocate PolicyKind = iota
	// NamedPreference pins the choice to a configured doctor name.
	NamedPreference
	// Manual defers the choice to the operator.
	Manual
)

// Policy is the selection policy tagged variant. Doctor and Fallback are
// meaningful only for NamedPreference: Fallback allows degrading to
// AutoAllocate when the named doctor has no capacity.
type Policy struct {
	Kind     PolicyKind
	Doctor   string
	Fallback bool
}

var (
	// ErrExhausted means no listed slot can be taken under the policy.
	// Distinct from an empty listing, which means "not yet published".
	ErrExhausted = errors.New("no eligible slot remaining")
	// ErrDeclined means the operator refused to pick a slot this round.
	ErrDeclined = errors.New("selection declined")
)

// Prompter is the operator-facing side of manual selection. PickSlot
// presents the candidates and returns the chosen index; implementations
// may return ErrDeclined to skip this round.
type Prompter interface {
	PickSlot(slots []Slot) (int, error)
}

// Selector applies a Policy to one polled slot sequence.
type Selector struct {
	policy   Policy
	prompter Prompter
	logger   *zap.Logger
}

// NewSelector creates a Selector. prompter may be nil unless the policy is
// Manual.
func NewSelector(policy Policy, prompter Prompter, logger *zap.Logger) *Selector {
	return &Selector{policy: policy, prompter: prompter, logger: logger}
}

// Choose picks one slot from a non-empty candidate sequence. It returns
// ErrExhausted when nothing can be taken under the policy and ErrDeclined
// when the operator skipped.
func (s *Selector) Choose(slots []Slot) (Slot, error) {
	switch s.policy.Kind {
	case NamedPreference:
		if slot, ok := lastAvailableNamed(slots, s.policy.Doctor); ok {
			s.logger.Info("selected preferred doctor",
				zap.String("doctor", slot.DoctorName),
				zap.Int("remain", slot.Remain))
			return slot, nil
		}
		if !s.policy.Fallback {
			return Slot{}, ErrExhausted
		}
		s.logger.Info("preferred doctor unavailable, falling back to auto allocation",
			zap.String("doctor", s.policy.Doctor))
		fallthrough
	case AutoAllocate:
		if slot, ok := lastAvailable(slots); ok {
			s.logger.Info("selected slot",
				zap.String("doctor", slot.DoctorName),
				zap.Int("remain", slot.Remain))
			return slot, nil
		}
		return Slot{}, ErrExhausted
	case Manual:
		return s.chooseManually(slots)
	}
	return Slot{}, ErrExhausted
}

func (s *Selector) chooseManually(slots []Slot) (Slot, error) {
	if _, ok := lastAvailable(slots); !ok {
		return Slot{}, ErrExhausted
	}
	for {
		idx, err := s.prompter.PickSlot(slots)
		if err != nil {
			return Slot{}, err
		}
		if idx < 0 || idx >= len(slots) {
			s.logger.Info("index out of range, pick again", zap.Int("index", idx))
			continue
		}
		if !slots[idx].Available() {
			s.logger.Info("slot has no capacity, pick again", zap.Int("index", idx))
			continue
		}
		return slots[idx], nil
	}
}

// lastAvailable scans in reverse list order: the service convention puts
// higher-ranked doctors later in the raw list.
func lastAvailable(slots []Slot) (Slot, bool) {
	for i := len(slots) - 1; i >= 0; i-- {
		if slots[i].Available() {
			return slots[i], true
		}
	}
	return Slot{}, false
}

func lastAvailableNamed(slots []Slot, doctor string) (Slot, bool) {
	for i := len(slots) - 1; i >= 0; i-- {
		if slots[i].DoctorName == doctor && slots[i].Available() {
			return slots[i], true
		}
	}
	return Slot{}, false
}
