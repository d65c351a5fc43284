/*
Package process is the tinyos kernel: the process table, program loading,
execute and halt, system call dispatch, fault handling and the round-robin
terminal scheduler.

# Processes

At most six processes exist at once. Each one owns a fixed slot in the
process table, a 4MB physical image region at 8MB + 4MB*pid, an 8KB kernel
stack ending at 8MB - 8KB*pid and a descriptor table. A process whose
parent pid equals its own pid is the root shell of its terminal.

Processes run as goroutines. A goroutine only touches the machine after
the CPU has been dispatched to its pid, so exactly one process runs at a
time. Every system call and user memory access is a preemption point.

# States

  - Free: the slot is unused
  - Running: the process is the active process of its terminal
  - Waiting: the process is blocked in execute until its child halts

# Execute and Halt

Execute validates and loads an image, saves the caller's registers into
the caller's control block and transfers to the child in ring 3. The
caller then spins with interrupts enabled until halt posts the child's
status. Halt closes descriptors, unmaps the video page, restores the
parent's address space, TSS and registers and hands the processor back.
Halting a root shell starts a new shell on the same terminal.

# Scheduling

The timer tick moves the processor to the next terminal in fixed cyclic
order. A terminal that has never run a process gets its root shell on its
first tick.

# Usage

	k := process.New(store, programs.Default(),
		process.WithTerminals(3),
		process.WithLogger(slog.Default()),
	)
	if err := k.Boot(ctx); err != nil {
		// handle error
	}
	defer k.Shutdown()

	k.KeyboardInterrupt(scancode)
*/
package process
