// Package version reports the build identity of the jobrunner binary.
//
//	go build -ldflags "-X github.com/kbukum/jobrunner/version.Version=1.4.0 \
//	    -X github.com/kbukum/jobrunner/version.Commit=$(git rev-parse --short HEAD)"
package version
