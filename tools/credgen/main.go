package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
)

// event mirrors the replay input schema of the credview tool
type event struct {
	Worker   int    `json:"worker"`
	PerClear uint32 `json:"per_clear"`
	Pid      uint32 `json:"pid"`
	Tgid     uint32 `json:"tgid"`
	Comm     string `json:"comm,omitempty"`
	Cred     *cred  `json:"cred,omitempty"`
	Task     task   `json:"task"`
	File     *file  `json:"file,omitempty"`
}

type cred struct {
	Euid uint32 `json:"euid"`
	Egid uint32 `json:"egid"`
}

type task struct {
	Uid uint32 `json:"uid"`
	Gid uint32 `json:"gid"`
}

type file struct {
	Ino        uint64      `json:"ino"`
	Nlink      uint32      `json:"nlink"`
	Superblock *superblock `json:"superblock,omitempty"`
}

type superblock struct {
	Dev    uint32 `json:"dev"`
	FsType string `json:"fs_type"`
}

var plainComms = []string{"bash", "ls", "cat", "curl", "grep", "sed", "make", "git"}
var setuidComms = []string{"passwd", "sudo", "su", "mount", "ping", "chsh"}
var fsTypes = []string{"ext4", "xfs", "btrfs", "tmpfs", "overlayfs", "nfs4"}

func main() {
	count := flag.Int("count", 100, "Number of events to generate")
	workers := flag.Int("workers", 4, "Worker ids to spread events across")
	setuidPct := flag.Int("setuid-pct", 10, "Percentage of setuid/setgid executions")
	deletedPct := flag.Int("deleted-pct", 5, "Percentage of deleted-binary executions")
	seed := flag.Int64("seed", 1, "Random seed")
	out := flag.String("out", "", "Output file (default stdout)")

	flag.Parse()

	w := os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating output file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		w = f
	}

	rng := rand.New(rand.NewSource(*seed))
	enc := json.NewEncoder(w)

	for i := 0; i < *count; i++ {
		pid := uint32(1000 + rng.Intn(60000))
		uid := uint32(1000 + rng.Intn(10))

		ev := event{
			Worker: rng.Intn(*workers),
			Pid:    pid,
			Tgid:   pid,
			Comm:   plainComms[rng.Intn(len(plainComms))],
			Task:   task{Uid: uid, Gid: uid},
			File: &file{
				Ino:   uint64(100000 + rng.Intn(900000)),
				Nlink: 1,
				Superblock: &superblock{
					Dev:    2049,
					FsType: fsTypes[rng.Intn(len(fsTypes))],
				},
			},
		}

		switch {
		case rng.Intn(100) < *setuidPct:
			// Privileged transition: effective ids flip to root
			ev.Comm = setuidComms[rng.Intn(len(setuidComms))]
			ev.PerClear = 1
			ev.Cred = &cred{Euid: 0, Egid: 0}
		case rng.Intn(100) < *deletedPct:
			// Binary unlinked while executing
			ev.File.Nlink = 0
		default:
			ev.Cred = &cred{Euid: uid, Egid: uid}
		}

		if err := enc.Encode(&ev); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing event: %v\n", err)
			os.Exit(1)
		}
	}
}
