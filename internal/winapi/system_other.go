//go:build !windows

package winapi

// Native returns the System backed by user32.dll.
func Native() (System, error) {
	return nil, ErrUnsupported
}
