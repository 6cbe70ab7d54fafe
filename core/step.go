package core

import "fmt"

// StepID identifies a data source inside a policy's step sequence.
// The canonical ids mirror the two classic sources (network and local
// storage) but any positive value may be used for additional sources.
type StepID int

const (
	// StepRemote identifies a remote (network) data source.
	StepRemote StepID = 1
	// StepLocal identifies a local (cache, disk, database) data source.
	StepLocal StepID = 2
)

// String returns the lower-case name of well-known steps and "step-N" otherwise.
func (s StepID) String() string {
	switch s {
	case StepRemote:
		return "remote"
	case StepLocal:
		return "local"
	default:
		return fmt.Sprintf("step-%d", int(s))
	}
}
