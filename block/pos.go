package block

// PackPos packs tile coordinates into a link address.
func PackPos(x, y int) int32 {
	return int32(x)<<16 | int32(y)&0xFFFF
}

// UnpackPos is the inverse of PackPos.
func UnpackPos(pos int32) (x, y int) {
	return int(int16(pos >> 16)), int(int16(pos & 0xFFFF))
}
