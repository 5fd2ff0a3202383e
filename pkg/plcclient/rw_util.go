package plcclient

import "github.com/cybroplc/abus-gateway/pkg/alc"

// RParams is one batch of random-memory read addresses, grouped by the
// width of the variable at each address, plus the ABUS data type of each
// 4-byte address (REAL is packed/unpacked as a float, everything else as
// a signed long — spec.md 4.I item 5).
type RParams struct {
	OneB      []uint16
	TwoB      []uint16
	FourB     []uint16
	FourTypes []alc.DataType
}

// WParams is one batch of random-memory write addresses and their
// already-typed values.
type WParams struct {
	OneBAddrs   []uint16
	TwoBAddrs   []uint16
	FourBAddrs  []uint16
	OneBValues  []uint8
	TwoBValues  []int16
	FourBValues []float64 // holds either an int32 or a float32 magnitude, per FourTypes
	FourTypes   []alc.DataType
}

// transportOverhead is the fixed byte cost of everything around a
// READ_RANDOM_MEMORY/WRITE_RANDOM_MEMORY request's address/value payload:
// the transport header+CRC, the command head, and the command byte —
// grounded on PlcClient.TRANSPORT_LAYER_AND_COMMAND_HEAD_AND_COMMAND.
const transportOverhead = 6 + 2 + 2 + 2 + 1

// Splitter bounds how many (address, value) pairs fit in one request/
// response pair of frames no larger than maxFrameSize, and recursively
// splits an over-budget batch the same way PlcClientReadWriteUtil does.
type Splitter struct {
	MaxFrameSize int
}

func (s Splitter) maxParamsLength() int {
	return s.MaxFrameSize - transportOverhead
}

// SplitRead splits an RParams batch so the request's address lists and the
// response's value lists both fit within MaxFrameSize, returning the
// portion to send now and, if anything didn't fit, the remainder to send
// in a follow-up request.
func (s Splitter) SplitRead(params RParams) (use RParams, rest *RParams) {
	availableReq := s.maxParamsLength() - 3*2 // 3 list-count fields, 2 bytes each
	availableRes := s.maxParamsLength()

	oneUse, oneLeft, availableReq, availableRes := splitRAddrs(params.OneB, 2, 1, availableReq, availableRes)
	if len(oneLeft) > 0 {
		return RParams{OneB: oneUse},
			&RParams{OneB: oneLeft, TwoB: params.TwoB, FourB: params.FourB, FourTypes: params.FourTypes}
	}

	twoUse, twoLeft, availableReq, availableRes := splitRAddrs(params.TwoB, 2, 2, availableReq, availableRes)
	if len(twoLeft) > 0 {
		return RParams{OneB: oneUse, TwoB: twoUse},
			&RParams{OneB: nil, TwoB: twoLeft, FourB: params.FourB, FourTypes: params.FourTypes}
	}

	fourUse, fourLeft, _, _ := splitRAddrs(params.FourB, 2, 4, availableReq, availableRes)
	fourTypesUse := params.FourTypes[:len(fourUse)]
	fourTypesLeft := params.FourTypes[len(fourUse):]

	result := RParams{OneB: oneUse, TwoB: twoUse, FourB: fourUse, FourTypes: fourTypesUse}
	if len(fourLeft) > 0 {
		return result, &RParams{FourB: fourLeft, FourTypes: fourTypesLeft}
	}
	return result, nil
}

func splitRAddrs(addrs []uint16, addrCostReq, addrCostRes, availableReq, availableRes int) (use, left []uint16, reqLeft, resLeft int) {
	maxByReq := availableReq / addrCostReq
	maxByRes := availableRes / addrCostRes
	maxFit := min(maxByReq, maxByRes)
	if maxFit < 0 {
		maxFit = 0
	}
	if maxFit > len(addrs) {
		maxFit = len(addrs)
	}
	use = addrs[:maxFit]
	left = addrs[maxFit:]
	return use, left, availableReq - maxFit*addrCostReq, availableRes - maxFit*addrCostRes
}

// SplitWrite splits a WParams batch so the request fits within
// MaxFrameSize (writes have no response payload to budget for, beyond the
// ack itself).
func (s Splitter) SplitWrite(params WParams) (use WParams, rest *WParams) {
	availableReq := s.maxParamsLength() - 3

	oneAddrsUse, oneAddrsLeft, oneValuesUse, oneValuesLeft, availableReq :=
		splitWAddrsAndValues(params.OneBAddrs, params.OneBValues, 2, 1, availableReq)
	if len(oneAddrsLeft) > 0 {
		return WParams{OneBAddrs: oneAddrsUse, OneBValues: oneValuesUse},
			&WParams{
				OneBAddrs: oneAddrsLeft, TwoBAddrs: params.TwoBAddrs, FourBAddrs: params.FourBAddrs,
				OneBValues: oneValuesLeft, TwoBValues: params.TwoBValues, FourBValues: params.FourBValues,
				FourTypes: params.FourTypes,
			}
	}

	twoAddrsUse, twoAddrsLeft, twoValuesUse, twoValuesLeft, availableReq :=
		splitWAddrsAndValues16(params.TwoBAddrs, params.TwoBValues, 2, 2, availableReq)
	if len(twoAddrsLeft) > 0 {
		return WParams{OneBAddrs: oneAddrsUse, TwoBAddrs: twoAddrsUse, OneBValues: oneValuesUse, TwoBValues: twoValuesUse},
			&WParams{
				TwoBAddrs: twoAddrsLeft, FourBAddrs: params.FourBAddrs,
				TwoBValues: twoValuesLeft, FourBValues: params.FourBValues,
				FourTypes: params.FourTypes,
			}
	}

	fourAddrsUse, fourAddrsLeft, fourValuesUse, fourValuesLeft, _ :=
		splitWAddrsAndValuesF(params.FourBAddrs, params.FourBValues, 2, 4, availableReq)
	fourTypesUse := params.FourTypes[:len(fourAddrsUse)]
	fourTypesLeft := params.FourTypes[len(fourAddrsUse):]

	result := WParams{
		OneBAddrs: oneAddrsUse, TwoBAddrs: twoAddrsUse, FourBAddrs: fourAddrsUse,
		OneBValues: oneValuesUse, TwoBValues: twoValuesUse, FourBValues: fourValuesUse,
		FourTypes: fourTypesUse,
	}
	if len(fourAddrsLeft) > 0 {
		return result, &WParams{FourBAddrs: fourAddrsLeft, FourBValues: fourValuesLeft, FourTypes: fourTypesLeft}
	}
	return result, nil
}

func splitWAddrsAndValues(addrs []uint16, values []uint8, addrCost, valueCost, available int) (addrsUse, addrsLeft []uint16, valuesUse, valuesLeft []uint8, rest int) {
	maxFit := available / (addrCost + valueCost)
	if maxFit > len(addrs) {
		maxFit = len(addrs)
	}
	if maxFit < 0 {
		maxFit = 0
	}
	return addrs[:maxFit], addrs[maxFit:], values[:maxFit], values[maxFit:], available - maxFit*addrCost
}

func splitWAddrsAndValues16(addrs []uint16, values []int16, addrCost, valueCost, available int) (addrsUse, addrsLeft []uint16, valuesUse, valuesLeft []int16, rest int) {
	maxFit := available / (addrCost + valueCost)
	if maxFit > len(addrs) {
		maxFit = len(addrs)
	}
	if maxFit < 0 {
		maxFit = 0
	}
	return addrs[:maxFit], addrs[maxFit:], values[:maxFit], values[maxFit:], available - maxFit*addrCost
}

func splitWAddrsAndValuesF(addrs []uint16, values []float64, addrCost, valueCost, available int) (addrsUse, addrsLeft []uint16, valuesUse, valuesLeft []float64, rest int) {
	maxFit := available / (addrCost + valueCost)
	if maxFit > len(addrs) {
		maxFit = len(addrs)
	}
	if maxFit < 0 {
		maxFit = 0
	}
	return addrs[:maxFit], addrs[maxFit:], values[:maxFit], values[maxFit:], available - maxFit*addrCost
}
