package direwolf

/*------------------------------------------------------------------
 *
 * Purpose:	Human readable forms of a received frame for the
 *		test tools.  Frame content is not interpreted beyond
 *		the AX.25 address field.
 *
 *------------------------------------------------------------------*/

import (
	"fmt"
	"io"
	"strings"
)

const AX25_MAX_ADDRS = 10 /* Destination, source, 8 digipeaters. */

const AX25_ADDR_LEN = 7

const MAXSAFE = 500

// Offset, 16 bytes in hexadecimal, then the printable ones.
func hex_dump(w io.Writer, p []byte) {
	var offset = 0

	for len(p) > 0 {
		var n = min(len(p), 16)

		fmt.Fprintf(w, "  %03x: ", offset)

		for i := range n {
			fmt.Fprintf(w, " %02x", p[i])
		}

		for i := n; i < 16; i++ {
			fmt.Fprintf(w, "   ")
		}

		fmt.Fprintf(w, "  ")

		for i := range n {
			if p[i] >= 0x20 && p[i] <= 0x7E {
				fmt.Fprintf(w, "%c", p[i])
			} else {
				fmt.Fprintf(w, ".")
			}
		}

		fmt.Fprintf(w, "\n")

		p = p[n:]
		offset += n
	}
}

/*------------------------------------------------------------------
 *
 * Function:	frame_addrs
 *
 * Purpose:	Pick apart the address field of an AX.25 frame.
 *
 * Inputs:	frame	- Without the FCS.
 *
 * Returns:	addrs	- Source, destination and digipeaters in the
 *			  usual form "SRC>DST,DIGI1,DIGI2*:".
 *			  Empty when the frame does not look like AX.25.
 *
 *		info	- Whatever follows the control and protocol id
 *			  fields, or the whole frame when not AX.25.
 *
 *		heard	- Index of the station actually heard, source
 *			  or last digipeater with the "H" bit set.
 *
 *------------------------------------------------------------------*/

func frame_addrs(frame []byte) (string, []byte, int) {
	var num_addr = 0

	for num_addr < AX25_MAX_ADDRS && (num_addr+1)*AX25_ADDR_LEN <= len(frame) {
		num_addr++
		if frame[num_addr*AX25_ADDR_LEN-1]&0x01 != 0 {
			break
		}
	}

	if num_addr < 2 || frame[num_addr*AX25_ADDR_LEN-1]&0x01 == 0 || num_addr*AX25_ADDR_LEN >= len(frame) {
		return "", frame, -1
	}

	var addr = func(n int) string {
		var a = frame[n*AX25_ADDR_LEN : (n+1)*AX25_ADDR_LEN]
		var call strings.Builder
		for _, b := range a[:6] {
			var c = b >> 1
			if c != ' ' {
				call.WriteByte(c)
			}
		}
		var ssid = (a[6] >> 1) & 0x0f
		if ssid != 0 {
			fmt.Fprintf(&call, "-%d", ssid)
		}
		return call.String()
	}

	var heard = 1 // Source, unless a digipeater has been used.
	for n := 2; n < num_addr; n++ {
		if frame[(n+1)*AX25_ADDR_LEN-1]&0x80 != 0 {
			heard = n
		}
	}

	var result strings.Builder
	result.WriteString(addr(1))
	result.WriteString(">")
	result.WriteString(addr(0))
	for n := 2; n < num_addr; n++ {
		result.WriteString(",")
		result.WriteString(addr(n))
		if n == heard {
			result.WriteString("*")
		}
	}
	result.WriteString(":")

	var rest = frame[num_addr*AX25_ADDR_LEN:]
	var control = rest[0]
	rest = rest[1:]

	/* I and UI frames have a protocol id. */
	if (control&0x01 == 0 || control&0xef == 0x03) && len(rest) > 0 {
		rest = rest[1:]
	}

	return result.String(), rest, heard
}

// Control characters shown as <0xNN>.  UTF-8 passes through.
func safe_text(info []byte) string {
	if len(info) > MAXSAFE {
		info = info[:MAXSAFE]
	}

	var safe strings.Builder
	var pstr = string(info)

	for i, ch := range pstr {
		if ch == ' ' && i == len(pstr)-1 {
			fmt.Fprintf(&safe, "<0x%02x>", ch)
		} else if ch < ' ' || ch == 0x7f || ch == 0xfe || ch == 0xff {
			fmt.Fprintf(&safe, "<0x%02x>", ch)
		} else {
			safe.WriteRune(ch)
		}
	}

	return safe.String()
}
