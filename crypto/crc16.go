package crypto

// Crc16 computes CRC-16/CCITT (poly 0x1021, zero init) over data. The card
// embeds it in every encrypted packet so a wrong session key is detected
// before the TLV payload is interpreted.
func Crc16(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
