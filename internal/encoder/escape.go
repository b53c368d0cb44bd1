package encoder

import "unicode/utf8"

const hexDigits = "0123456789abcdef"

// quote writes s as a JSON string literal.  On top of the mandatory escapes
// it writes '/' as "\/".  Bytes that are not valid UTF-8 are replaced with
// U+FFFD.
func (w *writer) quote(s string) {
	b := &w.buf
	b.WriteByte('"')

	start := 0
	for i := 0; i < len(s); {
		c := s[i]
		if c < utf8.RuneSelf {
			if c >= 0x20 && c != '"' && c != '\\' && c != '/' {
				i++

				continue
			}

			b.WriteString(s[start:i])
			switch c {
			case '"', '\\', '/':
				b.WriteByte('\\')
				b.WriteByte(c)
			case '\b':
				b.WriteString(`\b`)
			case '\f':
				b.WriteString(`\f`)
			case '\n':
				b.WriteString(`\n`)
			case '\r':
				b.WriteString(`\r`)
			case '\t':
				b.WriteString(`\t`)
			default:
				b.WriteString(`\u00`)
				b.WriteByte(hexDigits[c>>4])
				b.WriteByte(hexDigits[c&0xf])
			}

			i++
			start = i

			continue
		}

		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			b.WriteString(s[start:i])
			b.WriteString("\uFFFD")
			i += size
			start = i

			continue
		}

		i += size
	}

	b.WriteString(s[start:])
	b.WriteByte('"')
}
