// Package alc parses and stores ALC allocation files: the tag-name to
// memory-layout symbol tables that accompany a running controller program,
// identified by the CRC embedded in that program's plc_head (spec.md 4.H).
package alc

import "fmt"

// DataType enumerates the ABUS variable data types an ALC entry can
// declare. Unknown or unparsable type names fall back to None while
// keeping the declared size, per spec.md 4.H.
type DataType string

const (
	DataTypeBit   DataType = "BIT"
	DataTypeByte  DataType = "BYTE"
	DataTypeInt   DataType = "INT"
	DataTypeWord  DataType = "WORD"
	DataTypeLong  DataType = "LONG"
	DataTypeDWord DataType = "DWORD"
	DataTypeReal  DataType = "REAL"
	DataTypeNone  DataType = "NONE"
)

// sizeForDataType gives the byte size of each known data type; the parser
// uses it in place of the declared size whenever the type is listed here,
// and keeps the declared size only for types missing from it (see
// parser.go). It mirrors the original's DATA_TYPE_SIZES table.
var sizeForDataType = map[DataType]int{
	DataTypeBit:   1,
	DataTypeByte:  1,
	DataTypeInt:   2,
	DataTypeWord:  2,
	DataTypeLong:  4,
	DataTypeDWord: 4,
	DataTypeReal:  4,
}

func parseDataType(name string) (DataType, int, bool) {
	dt := DataType(name)
	size, ok := sizeForDataType[dt]
	if !ok {
		return DataTypeNone, 0, false
	}
	return dt, size, true
}

// VarInfo is one resolved ALC row: a symbolic tag bound to a controller
// memory address, size, and type. Array declarations expand into one
// VarInfo per element at parse time (spec.md's data model).
type VarInfo struct {
	ID          int
	Name        string
	IsArray     bool
	ArraySize   int
	Address     int
	Offset      int
	Size        int
	Scope       string
	DataType    DataType
	Description string
}

// IsUserVar reports whether this entry is flagged as a user (vs. system)
// variable: id & 0x02 == 0x02, per spec.md's data model.
func (v VarInfo) IsUserVar() bool {
	return v.ID&0x02 == 0x02
}

func (v VarInfo) String() string {
	return fmt.Sprintf("%s @0x%x (%s, %d bytes)", v.Name, v.Address, v.DataType, v.Size)
}
