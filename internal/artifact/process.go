package artifact

import (
	"fmt"
	"os"

	"github.com/mitchellh/go-ps"
)

// commLength is how many bytes of an executable name Linux keeps in /proc/<pid>/stat.
const commLength = 15

// Process is a running process that executes one of the staged binaries.
type Process struct {
	// PID is the process identifier.
	PID int
	// Executable is the name reported by the OS, possibly truncated.
	Executable string
}

// FindRunning lists processes whose executable name matches one of names.
// Overwriting the binary of such a process fails with "text file busy".
func FindRunning(names []string) ([]Process, error) {
	processes, err := ps.Processes()
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}

	wanted := make(map[string]struct{}, len(names))
	for _, name := range names {
		wanted[truncateComm(name)] = struct{}{}
	}

	self := os.Getpid()

	var found []Process

	for _, p := range processes {
		if p.Pid() == self {
			continue
		}

		if _, ok := wanted[truncateComm(p.Executable())]; !ok {
			continue
		}

		found = append(found, Process{PID: p.Pid(), Executable: p.Executable()})
	}

	return found, nil
}

func truncateComm(name string) string {
	if len(name) > commLength {
		return name[:commLength]
	}

	return name
}
