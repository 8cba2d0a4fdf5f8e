package env

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
)

// Load reads dotenv files into the process environment without overriding
// variables that are already set. Missing files are reported as loaded=false.
func Load(files ...string) (loaded bool, err error) {
	if err := godotenv.Load(files...); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
