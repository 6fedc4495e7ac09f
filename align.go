package arena

// isPowerOfTwo reports whether n is a positive power of two.
func isPowerOfTwo(n uintptr) bool {
	return n != 0 && n&(n-1) == 0
}

// alignUp rounds addr up to the next multiple of alignment, which must be a power of two.
func alignUp(addr, alignment uintptr) uintptr {
	mask := alignment - 1
	return (addr + mask) &^ mask
}

// padding returns the number of bytes between addr and alignUp(addr, alignment).
func padding(addr, alignment uintptr) uintptr {
	return alignUp(addr, alignment) - addr
}
