package plcclient

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cybroplc/abus-gateway/pkg/alc"
)

// decodeRandomMemoryResponse unpacks a READ_RANDOM_MEMORY response body:
// oneBCount raw bytes, then twoBCount little-endian int16s, then one 4-byte
// value per fourTypes entry — a float32 when the type is REAL, otherwise a
// signed int32 — matching plc_client.py's struct.unpack calls exactly.
func decodeRandomMemoryResponse(body []byte, oneBCount, twoBCount int, fourTypes []alc.DataType) ([]uint8, []int16, []float64, error) {
	fourBCount := len(fourTypes)

	oneBSize := oneBCount
	twoBSize := twoBCount * 2
	fourBSize := fourBCount * 4

	need := oneBSize + twoBSize + fourBSize
	if len(body) < need {
		return nil, nil, nil, fmt.Errorf(
			"plcclient: random memory response too short: need %d bytes, have %d", need, len(body))
	}

	oneBBytes := body[0:oneBSize]
	twoBBytes := body[oneBSize : oneBSize+twoBSize]
	fourBBytes := body[oneBSize+twoBSize : oneBSize+twoBSize+fourBSize]

	oneB := append([]uint8(nil), oneBBytes...)

	twoB := make([]int16, twoBCount)
	for i := 0; i < twoBCount; i++ {
		twoB[i] = int16(binary.LittleEndian.Uint16(twoBBytes[i*2 : i*2+2]))
	}

	fourB := make([]float64, fourBCount)
	for i := 0; i < fourBCount; i++ {
		raw := binary.LittleEndian.Uint32(fourBBytes[i*4 : i*4+4])
		if fourTypes[i] == alc.DataTypeReal {
			fourB[i] = float64(math.Float32frombits(raw))
		} else {
			fourB[i] = float64(int32(raw))
		}
	}

	return oneB, twoB, fourB, nil
}

// packRandomMemoryValues packs a WParams batch's values into the three
// little-endian byte runs WRITE_RANDOM_MEMORY expects, following the same
// "<f for REAL, <l otherwise" rule as plc_client.py's pack path.
func packRandomMemoryValues(params WParams) (oneB, twoB, fourB []byte, err error) {
	oneB = append([]byte(nil), params.OneBValues...)

	twoB = make([]byte, len(params.TwoBValues)*2)
	for i, v := range params.TwoBValues {
		binary.LittleEndian.PutUint16(twoB[i*2:i*2+2], uint16(v))
	}

	if len(params.FourBValues) != len(params.FourTypes) {
		return nil, nil, nil, fmt.Errorf(
			"plcclient: %d four-byte values but %d four-byte types", len(params.FourBValues), len(params.FourTypes))
	}

	fourB = make([]byte, len(params.FourBValues)*4)
	for i, v := range params.FourBValues {
		if params.FourTypes[i] == alc.DataTypeReal {
			binary.LittleEndian.PutUint32(fourB[i*4:i*4+4], math.Float32bits(float32(v)))
		} else {
			binary.LittleEndian.PutUint32(fourB[i*4:i*4+4], uint32(int32(v)))
		}
	}

	return oneB, twoB, fourB, nil
}
