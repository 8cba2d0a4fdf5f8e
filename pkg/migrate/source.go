package migrate

import (
	"embed"
	"io/fs"
	"os"
)

// DefaultDir is where `-cmd=create` writes new files; binaries read the embedded copy.
const DefaultDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Source returns the migrations filesystem: the embedded set for DefaultDir or an
// empty dir, otherwise the directory on disk.
func Source(dir string) fs.FS {
	if dir == "" || dir == DefaultDir {
		sub, err := fs.Sub(embedded, "migrations")
		if err != nil {
			panic(err)
		}
		return sub
	}
	return os.DirFS(dir)
}
