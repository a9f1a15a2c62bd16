package cpu

// Values match unicorn's so the unicorn engine can pass them straight through.
const (
	HOOK_INTR  = 1
	HOOK_INSN  = 2
	HOOK_CODE  = 4
	HOOK_BLOCK = 8

	HOOK_MEM_READ  = 1024
	HOOK_MEM_WRITE = 2048
	// every unmapped or protection fault
	HOOK_MEM_ERR = 1008
)

// access kinds passed to HOOK_MEM_ERR callbacks and carried by MemError
const (
	MEM_READ_UNMAPPED  = 19
	MEM_WRITE_UNMAPPED = 20
	MEM_FETCH_UNMAPPED = 21
	MEM_WRITE_PROT     = 12
	MEM_READ_PROT      = 13
	MEM_FETCH_PROT     = 14
)

const (
	PROT_READ  = 1
	PROT_WRITE = 2
	PROT_EXEC  = 4
)

// access kinds passed to HOOK_MEM_READ and HOOK_MEM_WRITE callbacks
const (
	MEM_WRITE = 16
	MEM_READ  = 17
	MEM_FETCH = 18
)
