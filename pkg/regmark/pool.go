package regmark

import (
	"context"

	"github.com/KromDaniel/regmark/internal/machine"
)

// getMachine returns a machine for the pattern's program, reusing one
// released by an earlier attempt when possible.
func (p *Pattern) getMachine() *machine.Machine {
	if m, ok := p.machines.Get().(*machine.Machine); ok {
		return m
	}
	m := machine.New(p.prog)
	m.SetLongest(p.flags&Longest != 0)
	m.SetMaxSteps(p.maxSteps)
	return m
}

// putMachine returns m to the pool. Results never alias machine state, so
// m may be reused as soon as its attempt has returned.
func (p *Pattern) putMachine(m *machine.Machine) {
	p.machines.Put(m)
}

// exec runs one attempt over in from pos. The step budget and ctx are only
// consulted when one of them is set.
func (p *Pattern) exec(ctx context.Context, in machine.Input, pos int, anchor machine.Anchor) (machine.Result, error) {
	m := p.getMachine()
	defer p.putMachine(m)

	if ctx == nil && p.maxSteps <= 0 {
		return m.Exec(in, pos, anchor), nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return m.MatchContext(ctx, in, pos, anchor)
}
