package verification

import "fmt"

// decodeUint parses the network's big-endian unsigned integer payload.
// The network pads results to a fixed width, so leading zero bytes are
// expected; anything that cannot fit a uint64 is rejected.
func decodeUint(payload []byte) (uint64, error) {
	if len(payload) == 0 {
		return 0, fmt.Errorf("empty payload")
	}
	i := 0
	for i < len(payload) && payload[i] == 0 {
		i++
	}
	if len(payload)-i > 8 {
		return 0, fmt.Errorf("payload of %d significant bytes overflows uint64", len(payload)-i)
	}
	var v uint64
	for ; i < len(payload); i++ {
		v = v<<8 | uint64(payload[i])
	}
	return v, nil
}
