//go:build !unix

package arena

func mapAnon(n int) ([]byte, error) {
	return HeapAllocator{}.Allocate(n)
}

func unmapAnon([]byte) error { return nil }

func mmapSupported() bool { return false }
