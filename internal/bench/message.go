package bench

import "SigAgg/internal/xmss"

// DeterministicMessage returns the message signed by item i: byte j is (i+j) mod 256.
func DeterministicMessage(i int) xmss.Message {
	var msg xmss.Message
	for j := range msg {
		msg[j] = byte(i + j)
	}

	return msg
}
