package proc

const wordSize = 8

func alignToWord(addr uint64) uint64 {
	return addr &^ (wordSize - 1)
}

// PatchByte replaces the byte at addr with b and returns the byte that was
// there before. The other bytes of the word containing addr are preserved.
func PatchByte(mem MemoryReadWriter, addr uint64, b byte) (byte, error) {
	aligned := alignToWord(addr)
	shift := 8 * (addr - aligned)

	word, err := mem.ReadWord(aligned)
	if err != nil {
		return 0, err
	}
	orig := byte(word >> shift)
	word = word&^(0xff<<shift) | uint64(b)<<shift
	if err := mem.WriteWord(aligned, word); err != nil {
		return 0, err
	}
	return orig, nil
}
