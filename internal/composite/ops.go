// Package composite merges several independently named processing components
// into one logical unit behind a conflict-resolved route table.
package composite

// Op names one operation from the closed lifecycle vocabulary shared by all
// components. Only recognized ops participate in route-table construction.
type Op string

// Recognized lifecycle operations.
const (
	OpAdd    Op = "add"
	OpQuery  Op = "query"
	OpTrain  Op = "train"
	OpEncode Op = "encode"
	OpDump   Op = "dump"
	OpFlush  Op = "flush"
	OpPrune  Op = "prune"
)

// recognizedOps lists the vocabulary in table-construction order.
var recognizedOps = []Op{OpAdd, OpQuery, OpTrain, OpEncode, OpDump, OpFlush, OpPrune}

// Recognized returns the closed operation vocabulary in canonical order.
func Recognized() []Op {
	out := make([]Op, len(recognizedOps))
	copy(out, recognizedOps)
	return out
}

// IsValid checks if the op belongs to the recognized vocabulary.
func (o Op) IsValid() bool {
	for _, r := range recognizedOps {
		if o == r {
			return true
		}
	}
	return false
}
