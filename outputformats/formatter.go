package outputformats

import "github.com/credview/credview/types"

// EventFormatter defines the interface for different output formats
type EventFormatter interface {
	Initialize() error
	Close() error

	FormatCredCommit(event *types.CredCommitEvent) error
}
