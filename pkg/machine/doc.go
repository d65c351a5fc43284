/*
Package machine simulates the parts of a single-processor i386 machine that
the tinyos kernel depends on.

It provides:

  - Sparse physical memory addressed by 32-bit physical addresses
  - Page directory and page table entries with the x86 bit layout
  - An MMU that walks the paging structures and caches translations in a
    TLB which is only invalidated by an explicit Flush
  - A CPU with a register file, a task-state segment, a current privilege
    level and an interrupt flag
  - The exception vector table names used when a fault is reported

# Interrupt Flag

The interrupt flag is modelled as a lock. Cli acquires it and Sti releases
it; interrupt handlers run inside Interrupt, which holds the lock for the
duration of the handler. Everything that mutates global machine state (the
paging structures, the TSS, the register file) does so with the lock held.

# Processor Ownership

Only one process runs at a time. The CPU keeps an owner pid; process
goroutines call WaitTurn before touching the machine and Idle while they
busy-wait. Sti broadcasts, so every waiter re-checks its condition whenever
any critical section ends.
*/
package machine
