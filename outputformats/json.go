package outputformats

import (
	"encoding/json"
	"io"
	"time"

	"github.com/credview/credview/types"
)

type JSONFormatter struct {
	encoder    *json.Encoder
	output     io.Writer
	hostname   string
	sessionUID string
}

// Host information when hostname is enabled
type HostInfo struct {
	Name string `json:"name,omitempty"`
}

// CredCommitJSON is the serialized form of a committed correlation record
type CredCommitJSON struct {
	Timestamp  string    `json:"timestamp"`
	SessionUID string    `json:"session_uid"`
	Host       *HostInfo `json:"host,omitempty"`
	EventType  string    `json:"event_type"`
	Worker     int       `json:"worker"`
	TID        string    `json:"tid"`
	Reason     string    `json:"reason"`
	Process    struct {
		PID  uint32 `json:"pid"`
		Comm string `json:"comm,omitempty"`
	} `json:"process"`
	Privileges struct {
		Raw   uint32   `json:"raw"`
		Flags []string `json:"flags,omitempty"`
	} `json:"privileges"`
	Executable struct {
		Inode     uint64 `json:"inode"`
		LinkCount uint32 `json:"link_count"`
		Device    uint32 `json:"device,omitempty"`
		FsType    string `json:"fs_type,omitempty"`
		Deleted   bool   `json:"deleted"`
	} `json:"executable"`
}

func NewJSONFormatter(output io.Writer, hostname, sessionUID string) *JSONFormatter {
	return &JSONFormatter{
		encoder:    json.NewEncoder(output),
		output:     output,
		hostname:   hostname,
		sessionUID: sessionUID,
	}
}

func (f *JSONFormatter) Initialize() error {
	return nil
}

func (f *JSONFormatter) Close() error {
	return nil
}

func (f *JSONFormatter) FormatCredCommit(event *types.CredCommitEvent) error {
	info := &event.Info

	out := CredCommitJSON{
		Timestamp:  event.Timestamp.Format(time.RFC3339Nano),
		SessionUID: f.sessionUID,
		EventType:  "cred_commit",
		Worker:     event.Worker,
		TID:        tidString(event.TID),
		Reason:     commitReason(info),
	}
	if f.hostname != "" {
		out.Host = &HostInfo{Name: f.hostname}
	}
	out.Process.PID = event.PID
	out.Process.Comm = cleanField(event.Comm, "")
	out.Privileges.Raw = info.SecureExec
	out.Privileges.Flags = types.SecureExecNames(info.SecureExec)
	out.Executable.Inode = info.Inode.Ino
	out.Executable.LinkCount = info.Inode.Nlink
	out.Executable.Device = info.Mount.Dev
	out.Executable.FsType = info.Mount.FsTypeString()
	out.Executable.Deleted = info.Inode.Nlink == 0 && info.Inode.Ino != 0

	return f.encoder.Encode(&out)
}
