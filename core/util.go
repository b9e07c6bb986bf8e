package core

import (
	"log"
	"os"
	"path/filepath"
)

// Getwd finds the project root, i.e. the closest parent directory holding a go.mod.
// go test changes the working directory to the package being tested, so os.Getwd alone is not enough.
// Outside the source tree (e.g. a deployed binary) the current directory is used.
func Getwd() string {
	wd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}
	currDir := wd
	for {
		if fi, err := os.Stat(filepath.Join(currDir, "go.mod")); err == nil && !fi.IsDir() {
			return currDir
		}
		newDir := filepath.Dir(currDir)
		if newDir == currDir {
			return wd
		}
		currDir = newDir
	}
}
