package models

// Ins is one disassembled instruction.
type Ins interface {
	Addr() uint64
	Bytes() []byte
	Mnemonic() string
	OpStr() string
}

// InsSize is the length of the first instruction in dis, or 0 if there is none.
func InsSize(dis []Ins) int {
	if len(dis) == 0 {
		return 0
	}
	return len(dis[0].Bytes())
}
