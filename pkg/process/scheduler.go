package process

import (
	"tinyos/pkg/machine"
)

// SchedulerStats contains scheduler statistics.
type SchedulerStats struct {
	// Ticks is the number of acknowledged timer interrupts.
	Ticks uint64
	// Current is the terminal that owns the running time slice.
	Current int
	// Visits counts the time slices given to each terminal.
	Visits []uint64
	// Active holds the active pid of each terminal, or NoPID.
	Active []int
}

// Stats returns a snapshot of the scheduler.
func (k *Kernel) Stats() SchedulerStats {
	var s SchedulerStats
	k.cpu.Interrupt(func() {
		s.Ticks = k.pit.Acks()
		s.Current = k.current
		s.Visits = append([]uint64(nil), k.visits...)
		for _, t := range k.terms {
			s.Active = append(s.Active, t.pid)
		}
	})
	return s
}

// tick is the timer interrupt handler. It moves the processor to the next
// terminal in cyclic order, starting that terminal's root shell if it has
// none. Interrupts are disabled.
func (k *Kernel) tick() {
	k.pit.Ack()
	next := (k.current + 1) % len(k.terms)

	if cur := k.procs.Get(k.terms[k.current].pid); cur != nil {
		cur.Saved = k.cpu.Regs
	}

	slot := &k.terms[next]
	if !slot.started {
		if _, err := k.spawn(next, k.shell, nil); err != nil {
			k.logger.Error("starting terminal", "terminal", next, "shell", k.shell, "error", err)
			k.cpu.Dispatch(machine.NoOwner)
		} else {
			slot.started = true
		}
	} else {
		k.resume(k.procs.Get(slot.pid))
	}

	k.current = next
	k.visits[next]++
}

// resume installs p's context and hands it the processor. A nil p idles
// the processor.
func (k *Kernel) resume(p *PCB) {
	if p == nil {
		k.cpu.Dispatch(machine.NoOwner)
		return
	}
	k.cpu.TSS = machine.TSS{SS0: p.SS0, ESP0: p.ESP0}
	k.pages.MapProcess(p.PID)
	if p.Vidmap {
		k.pages.MapVideo(k.console.Terminal(p.Terminal).Video())
	} else if k.pages.VideoMapped() {
		k.pages.UnmapVideo()
	}
	k.cpu.Restore(p.Saved)
	k.cpu.Dispatch(p.PID)
}
