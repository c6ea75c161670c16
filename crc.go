// SPDX-License-Identifier: MIT
//
// Copyright © 2024 OPERA70R.

package regseq

// CRC16 computes the reflected CRC-16 with polynomial 0x8408 and initial
// value 0xFFFF over p, with no final xor. Devices that enable CRC framing
// append this checksum little-endian after the payload.
func CRC16(p []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range p {
		crc ^= uint16(b)
		for i := 0; i < 8; i++ {
			if crc&1 != 0 {
				crc = crc>>1 ^ 0x8408
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}
