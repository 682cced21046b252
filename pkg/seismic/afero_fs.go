package seismic

import (
	"os"

	"github.com/spf13/afero"
)

// AferoFileDeleter implements FileDeleter over an afero.Fs, letting
// production code run against the real disk (afero.NewOsFs()) while tests
// run against an in-memory filesystem (afero.NewMemMapFs()) without ever
// touching the host disk.
type AferoFileDeleter struct {
	Fs afero.Fs
}

// NewOSFileDeleter returns a FileDeleter backed by the real filesystem.
func NewOSFileDeleter() *AferoFileDeleter {
	return &AferoFileDeleter{Fs: afero.NewOsFs()}
}

func (a *AferoFileDeleter) Delete(path string) error {
	err := a.Fs.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (a *AferoFileDeleter) Exists(path string) bool {
	ok, err := afero.Exists(a.Fs, path)
	return err == nil && ok
}

func (a *AferoFileDeleter) Size(path string) (int64, error) {
	info, err := a.Fs.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

var _ FileDeleter = (*AferoFileDeleter)(nil)
