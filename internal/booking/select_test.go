package booking

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func slots() []Slot {
	return []Slot{
		{DoctorID: 1, DoctorName: "张三", Remain: 2},
		{DoctorID: 2, DoctorName: "李四", Remain: 0},
		{DoctorID: 3, DoctorName: "王五", Remain: 1},
	}
}

func TestChooseAutoAllocatePicksLastAvailable(t *testing.T) {
	sel := NewSelector(Policy{Kind: AutoAllocate}, nil, zap.NewNop())

	slot, err := sel.Choose(slots())
	assert.NoError(t, err)
	// Higher-ranked doctors are listed later, so the reverse scan must
	// land on 王五 even though 张三 has more capacity.
	assert.Equal(t, int64(3), slot.DoctorID)
}

func TestChooseAutoAllocateSkipsEmptySlots(t *testing.T) {
	sel := NewSelector(Policy{Kind: AutoAllocate}, nil, zap.NewNop())

	list := slots()
	list[2].Remain = 0
	slot, err := sel.Choose(list)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), slot.DoctorID)
}

func TestChooseExhaustedWhenAllZero(t *testing.T) {
	sel := NewSelector(Policy{Kind: AutoAllocate}, nil, zap.NewNop())

	list := []Slot{{DoctorName: "张三"}, {DoctorName: "李四"}}
	_, err := sel.Choose(list)
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestChooseNamedPreference(t *testing.T) {
	testCases := []struct {
		name      string
		policy    Policy
		list      []Slot
		wantID    int64
		wantError error
	}{
		{
			name:   "named doctor wins over position",
			policy: Policy{Kind: NamedPreference, Doctor: "张三"},
			list:   slots(),
			wantID: 1,
		},
		{
			name:   "missing doctor falls back when allowed",
			policy: Policy{Kind: NamedPreference, Doctor: "赵六", Fallback: true},
			list:   slots(),
			wantID: 3,
		},
		{
			name:      "missing doctor exhausts without fallback",
			policy:    Policy{Kind: NamedPreference, Doctor: "赵六"},
			list:      slots(),
			wantError: ErrExhausted,
		},
		{
			name:      "named doctor with no capacity exhausts",
			policy:    Policy{Kind: NamedPreference, Doctor: "李四"},
			list:      slots(),
			wantError: ErrExhausted,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sel := NewSelector(tc.policy, nil, zap.NewNop())
			slot, err := sel.Choose(tc.list)
			if tc.wantError != nil {
				assert.ErrorIs(t, err, tc.wantError)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tc.wantID, slot.DoctorID)
			}
		})
	}
}

// scriptedPrompter returns a fixed sequence of picks.
type scriptedPrompter struct {
	picks []int
	calls int
}

func (p *scriptedPrompter) PickSlot(slots []Slot) (int, error) {
	if p.calls >= len(p.picks) {
		return 0, ErrDeclined
	}
	idx := p.picks[p.calls]
	p.calls++
	return idx, nil
}

func TestChooseManualRepromptsOnInvalidPick(t *testing.T) {
	prompter := &scriptedPrompter{picks: []int{7, 1, 0}}
	sel := NewSelector(Policy{Kind: Manual}, prompter, zap.NewNop())

	// Index 7 is out of range, index 1 has no capacity, index 0 is valid
	// even though it is the zero value of an index.
	slot, err := sel.Choose(slots())
	assert.NoError(t, err)
	assert.Equal(t, int64(1), slot.DoctorID)
	assert.Equal(t, 3, prompter.calls)
}

func TestChooseManualDeclined(t *testing.T) {
	sel := NewSelector(Policy{Kind: Manual}, &scriptedPrompter{}, zap.NewNop())

	_, err := sel.Choose(slots())
	assert.ErrorIs(t, err, ErrDeclined)
}

func TestChooseManualExhaustedBeforePrompting(t *testing.T) {
	prompter := &scriptedPrompter{picks: []int{0}}
	sel := NewSelector(Policy{Kind: Manual}, prompter, zap.NewNop())

	_, err := sel.Choose([]Slot{{DoctorName: "张三"}})
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 0, prompter.calls, "prompter must not run when nothing is available")
}

func TestConsolePrompter(t *testing.T) {
	var out strings.Builder
	p := NewConsolePrompter(strings.NewReader("2\n"), &out)

	idx, err := p.PickSlot(slots())
	assert.NoError(t, err)
	assert.Equal(t, 2, idx)
	assert.Contains(t, out.String(), "王五")
}

func TestConsolePrompterDeclinesOnEmptyLine(t *testing.T) {
	var out strings.Builder
	p := NewConsolePrompter(strings.NewReader("\n"), &out)

	_, err := p.PickSlot(slots())
	assert.ErrorIs(t, err, ErrDeclined)
}
