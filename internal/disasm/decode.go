package disasm

// DecodeAll decodes the cursor's region from its start until the end.
//
// Bytes are pulled from the cursor into a window no longer than the
// engine's maximum instruction length. When the region ends in the middle
// of an instruction the trailing bytes are dropped: code regions do not
// necessarily end on an instruction boundary. A memory error also ends the
// loop; callers must check c.Err.
func DecodeAll(c *Cursor, e Engine) Stream {
	r := c.Region()
	maxLen := e.MaxInstLen()
	window := make([]byte, 0, maxLen)
	eos := false

	var out Stream
	pc := r.Start
	for pc < r.End() {
		for !eos && len(window) < maxLen {
			b, err := c.ReadByte()
			if err != nil {
				eos = true
				break
			}
			window = append(window, b)
		}
		if len(window) == 0 {
			break
		}

		inst, err := e.Decode(window, pc)
		if err != nil || inst.Len <= 0 || inst.Len > len(window) {
			break
		}
		out = append(out, inst)
		pc += uint64(inst.Len)
		window = append(window[:0], window[inst.Len:]...)
	}
	return out
}
