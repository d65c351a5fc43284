package machine

import (
	"fmt"
	"runtime"
	"strings"
)

// Vector is an interrupt descriptor table index.
type Vector uint8

// Processor exceptions.
const (
	DivideError Vector = iota
	DebugException
	NMI
	Breakpoint
	Overflow
	BoundRange
	InvalidOpcode
	DeviceNotAvailable
	DoubleFault
	CoprocessorOverrun
	InvalidTSS
	SegmentNotPresent
	StackFault
	GeneralProtection
	PageFaultVector
	Reserved
	FPUError
	AlignmentCheck
	MachineCheck
	SIMDError
)

// Hardware interrupt and trap vectors.
const (
	TimerVector    Vector = 0x20
	KeyboardVector Vector = 0x21
	RTCVector      Vector = 0x28
	SyscallVector  Vector = 0x80
)

var exceptionNames = [...]string{
	"Divide Error Exception (#DE)",
	"Debug Exception (#DB)",
	"NMI Interrupt",
	"Breakpoint Exception (#BP)",
	"Overflow Exception (#OF)",
	"BOUND Range Exceeded Exception (#BR)",
	"Invalid Opcode Exception (#UD)",
	"Device Not Available Exception (#NM)",
	"Double Fault Exception (#DF)",
	"Coprocessor Segment Overrun",
	"Invalid TSS Exception (#TS)",
	"Segment Not Present (#NP)",
	"Stack Fault Exception (#SS)",
	"General Protection Exception (#GP)",
	"Page-Fault Exception (#PF)",
	"Reserved",
	"x87 FPU Floating-Point Error (#MF)",
	"Alignment Check Exception (#AC)",
	"Machine-Check Exception (#MC)",
	"SIMD Floating-Point Exception (#XF)",
}

// String returns the exception name for vectors 0-19.
func (v Vector) String() string {
	if int(v) < len(exceptionNames) {
		return exceptionNames[v]
	}
	return fmt.Sprintf("Interrupt %#02x", uint8(v))
}

// Exception is a processor exception raised while executing a process.
type Exception struct {
	Vector Vector
	Cause  error
}

func (e *Exception) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Vector, e.Cause)
	}
	return e.Vector.String()
}

func (e *Exception) Unwrap() error { return e.Cause }

// Raise panics with an exception for vector v.
func Raise(v Vector, cause error) {
	panic(&Exception{Vector: v, Cause: cause})
}

// FromPanic converts a value recovered from a user goroutine into the
// exception the processor would have raised. Runtime divide errors map to
// #DE, page faults to #PF and everything else to #GP.
func FromPanic(r any) *Exception {
	switch v := r.(type) {
	case *Exception:
		return v
	case *PageFault:
		return &Exception{Vector: PageFaultVector, Cause: v}
	case runtime.Error:
		if strings.Contains(v.Error(), "divide by zero") {
			return &Exception{Vector: DivideError, Cause: v}
		}
		return &Exception{Vector: GeneralProtection, Cause: v}
	case error:
		return &Exception{Vector: GeneralProtection, Cause: v}
	default:
		return &Exception{Vector: GeneralProtection, Cause: fmt.Errorf("%v", v)}
	}
}
