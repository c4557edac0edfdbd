package booking

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
)

// ConsolePrompter renders the candidate table and reads the operator's
// pick from in. An empty line or EOF declines the round.
type ConsolePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewConsolePrompter creates a ConsolePrompter over the given streams.
func NewConsolePrompter(in io.Reader, out io.Writer) *ConsolePrompter {
	return &ConsolePrompter{in: bufio.NewReader(in), out: out}
}

// PickSlot implements Prompter.
func (p *ConsolePrompter) PickSlot(slots []Slot) (int, error) {
	w := tabwriter.NewWriter(p.out, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "index\tdoctor\tskill\tfee\tremain")
	for i, s := range slots {
		fmt.Fprintf(w, "%d\t%s\t%s\t%.2f\t%d\n", i, s.DoctorName, s.Skill, s.TotalFee, s.Remain)
	}
	w.Flush()

	fmt.Fprint(p.out, "pick a slot by index (empty to skip): ")
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return 0, ErrDeclined
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return 0, ErrDeclined
	}
	idx, err := strconv.Atoi(line)
	if err != nil {
		// Out-of-range value makes the selector re-prompt.
		return -1, nil
	}
	return idx, nil
}
