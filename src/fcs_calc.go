package direwolf

/*
 * Calculate the FCS for an AX.25 frame.
 *
 * CRC-16-CCITT as used by HDLC: reflected polynomial 0x8408, preset to
 * all ones and inverted at the end.  Transmitted low byte first.
 */

var ccitt_table [256]uint16

func init() {
	for i := range 256 {
		var crc = uint16(i)
		for range 8 {
			if crc&1 != 0 {
				crc = (crc >> 1) ^ 0x8408
			} else {
				crc >>= 1
			}
		}
		ccitt_table[i] = crc
	}
}

func fcs_calc(data []byte) uint16 {
	var crc uint16 = 0xffff

	for _, b := range data {
		crc = (crc >> 8) ^ ccitt_table[(crc^uint16(b))&0xff]
	}

	return crc ^ 0xffff
}
