package models

// TracerConfig holds backend options that do not change the snippet itself.
type TracerConfig struct {
	// emulate a Cortex-A72 instead of the engine's default arm64 CPU
	ForceA72 bool
}

type Callback[U, E any] func(t TracerControl[U, E])

// TracerControl is the part of a Tracer that callbacks may use.
// U is the architecture's UContext and E its RegisterGroupIOBuffer.
type TracerControl[U, E any] interface {
	// Stop asks the tracer to stop at the next instruction boundary.
	// A few more instructions may run before it takes effect.
	Stop()

	SetInstructionPointer(addr uint64) error
	GetInstructionPointer() (uint64, error)
	GetStackPointer() (uint64, error)

	SetRegisters(u *U) error
	// GetRegisters fills u and, when eregs is not nil, the extension
	// registers the backend can read. Unreadable groups are zeroed.
	GetRegisters(u *U, eregs *E) error

	ReadMemory(addr uint64, p []byte) error

	// PartialChecksumOfMutableMemory samples writable memory. The result is
	// only comparable between runs of the same build.
	PartialChecksumOfMutableMemory() (uint32, error)
	IterateMappedMemory(fn func(start, limit uint64, perms MemoryPerms))

	// InstructionIsInRange reports whether [addr, addr+size) lies inside the snippet.
	InstructionIsInRange(addr, size uint64) bool
	IsInsideCode(addr uint64) bool
}

// Tracer runs one snippet, once. It is not safe for concurrent use.
type Tracer[U, E any] interface {
	TracerControl[U, E]

	InitSnippet(insns []byte, cfg TracerConfig, fc FuzzingConfig) error
	Run(maxInsns uint64) error

	// each callback may be set at most once
	SetBeforeExecutionCallback(cb Callback[U, E])
	SetBeforeInstructionCallback(cb Callback[U, E])
	SetAfterExecutionCallback(cb Callback[U, E])

	Close() error
}

// Callbacks implements the callback setters shared by every backend.
type Callbacks[U, E any] struct {
	BeforeExecution   Callback[U, E]
	BeforeInstruction Callback[U, E]
	AfterExecution    Callback[U, E]
}

func setOnce[U, E any](slot *Callback[U, E], cb Callback[U, E], name string) {
	if *slot != nil {
		panic(name + " callback already set")
	}
	*slot = cb
}

func (c *Callbacks[U, E]) SetBeforeExecutionCallback(cb Callback[U, E]) {
	setOnce(&c.BeforeExecution, cb, "before execution")
}

func (c *Callbacks[U, E]) SetBeforeInstructionCallback(cb Callback[U, E]) {
	setOnce(&c.BeforeInstruction, cb, "before instruction")
}

func (c *Callbacks[U, E]) SetAfterExecutionCallback(cb Callback[U, E]) {
	setOnce(&c.AfterExecution, cb, "after execution")
}

func (c *Callbacks[U, E]) Fire(cb Callback[U, E], t TracerControl[U, E]) {
	if cb != nil {
		cb(t)
	}
}
