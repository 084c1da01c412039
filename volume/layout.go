package volume

// ControlBlockSize is the fixed size in bytes of every control-structure
// page in a volume file: the header block and every free-records block.
// Data record slots are sized independently, per size class.
const ControlBlockSize = 4096

// FreeRecordsBlockCount is the number of free-slot offset entries a single
// free-records control block holds: one uint64 per entry, minus the trailing
// "next" pointer (spec.md §4.2: CONTROL_BLOCK_SIZE/8 - 1).
const FreeRecordsBlockCount = ControlBlockSize/8 - 1
