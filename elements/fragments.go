package elements

// FrameIterator splits f's bulk-data fragments into frames. When f carries
// an offsets table, each entry marks where a frame begins inside the
// concatenation of every fragment after the offsets-table item; a single
// frame may span several fragments and a single fragment may hold bytes
// for several frames. Without an offsets table, each fragment is its own
// frame.
func (f Fragments) FrameIterator() [][]byte {
	if !f.HasOffsets || len(f.Offsets) == 0 {
		out := make([][]byte, len(f.Fragments))
		copy(out, f.Fragments)
		return out
	}

	total := 0
	for _, frag := range f.Fragments {
		total += len(frag)
	}
	concatenated := make([]byte, 0, total)
	for _, frag := range f.Fragments {
		concatenated = append(concatenated, frag...)
	}

	frames := make([][]byte, 0, len(f.Offsets))
	clamp := func(n uint32) int {
		if int(n) > len(concatenated) {
			return len(concatenated)
		}
		return int(n)
	}
	for i, off := range f.Offsets {
		end := uint32(len(concatenated))
		if i+1 < len(f.Offsets) {
			end = f.Offsets[i+1]
		}
		frames = append(frames, concatenated[clamp(off):clamp(end)])
	}
	return frames
}
