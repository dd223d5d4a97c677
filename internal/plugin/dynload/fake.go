package dynload

import "fmt"

// FakeLoader is a test double standing in for NativeLoader: it resolves
// paths to pre-registered libraries instead of touching the filesystem or
// Go's plugin package.
type FakeLoader struct {
	libraries map[string]Library
}

// NewFakeLoader builds an empty FakeLoader; register libraries with
// Register before use.
func NewFakeLoader() *FakeLoader {
	return &FakeLoader{libraries: make(map[string]Library)}
}

// Register makes lib available at path.
func (f *FakeLoader) Register(path string, lib Library) {
	f.libraries[path] = lib
}

func (f *FakeLoader) Open(path string) (Library, error) {
	lib, ok := f.libraries[path]
	if !ok {
		return nil, fmt.Errorf("dynload: no fake library registered for %q", path)
	}
	return lib, nil
}

// FakeLibrary is a Library backed by plain field values, letting a test
// simulate a correct handle, a version mismatch, or a lookup failure.
type FakeLibrary struct {
	Handle        Handle
	Version       uint32
	CreateErr     error
	APIVersionErr error
	Closed        bool
}

func (f *FakeLibrary) CreatePlugin() (Handle, error) {
	if f.CreateErr != nil {
		return nil, f.CreateErr
	}
	return f.Handle, nil
}

func (f *FakeLibrary) APIVersion() (uint32, error) {
	if f.APIVersionErr != nil {
		return 0, f.APIVersionErr
	}
	return f.Version, nil
}

func (f *FakeLibrary) Close() error {
	f.Closed = true
	return nil
}
