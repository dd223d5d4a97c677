package scanner

import "time"

// Kind identifies which variant of the ScanMessage tagged union a message
// carries (spec §3 "ScanMessage").
type Kind string

const (
	KindRepositoryData Kind = "RepositoryData"
	KindCommitData     Kind = "CommitData"
	KindFileChange     Kind = "FileChange"
	KindScanStarted    Kind = "ScanStarted"
	KindScanProgress   Kind = "ScanProgress"
	KindScanCompleted  Kind = "ScanCompleted"
	KindScanError      Kind = "ScanError"
)

// RepositoryData describes the repository being scanned.
type RepositoryData struct {
	Path          string `json:"path"`
	DefaultBranch string `json:"default_branch"`
	RemoteURL     string `json:"remote_url,omitempty"`
}

// CommitData describes a single commit visited during history traversal.
type CommitData struct {
	Hash         string    `json:"hash"`
	Author       string    `json:"author"`
	Message      string    `json:"message"`
	CommitTime   time.Time `json:"commit_time"`
	ParentHashes []string  `json:"parent_hashes,omitempty"`
}

// FileChange describes one file touched by a commit. It always follows the
// CommitData for CommitHash and always precedes the next commit's messages
// (spec §3 canonical ordering).
type FileChange struct {
	CommitHash string `json:"commit_hash"`
	Path       string `json:"path"`
	ChangeType string `json:"change_type"` // added, modified, deleted, renamed
	Additions  int    `json:"additions"`
	Deletions  int    `json:"deletions"`
}

// Started marks the beginning of a scan.
type Started struct {
	RequirementsRequested Requires `json:"requirements_requested"`
}

// Progress reports incremental counters during a long-running scan.
type Progress struct {
	CommitsScanned int           `json:"commits_scanned"`
	FilesScanned   int           `json:"files_scanned"`
	Elapsed        time.Duration `json:"elapsed"`
}

// Completed marks the successful end of a scan.
type Completed struct {
	TotalCommits int           `json:"total_commits"`
	TotalFiles   int           `json:"total_files"`
	Duration     time.Duration `json:"duration"`
}

// ErrorKind is the scanner-domain error taxonomy from spec §7.
type ErrorKind string

const (
	ErrorRepository   ErrorKind = "Repository"
	ErrorIO           ErrorKind = "Io"
	ErrorFilterInvalid ErrorKind = "FilterInvalid"
	ErrorCancelled    ErrorKind = "Cancelled"
)

// ScanFailure carries a scanner-domain error surfaced as a final ScanError
// message rather than a returned error (spec §4.4 invariant 5).
type ScanFailure struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// Message is the tagged union emitted by a scanner. Exactly one of the
// payload fields is populated, selected by Kind.
type Message struct {
	Kind      Kind      `json:"kind"`
	ScannerID string    `json:"scanner_id"`
	Timestamp time.Time `json:"timestamp"`

	Repository *RepositoryData `json:"repository,omitempty"`
	Commit     *CommitData     `json:"commit,omitempty"`
	FileChange *FileChange     `json:"file_change,omitempty"`
	Started    *Started        `json:"started,omitempty"`
	Progress   *Progress       `json:"progress,omitempty"`
	Completed  *Completed      `json:"completed,omitempty"`
	Failure    *ScanFailure    `json:"failure,omitempty"`
}

// GroupID implements queue.Grouper: CommitData and FileChange messages
// belong to the group named by their commit hash.
func (m Message) GroupID() (string, bool) {
	switch {
	case m.Commit != nil:
		return m.Commit.Hash, true
	case m.FileChange != nil:
		return m.FileChange.CommitHash, true
	default:
		return "", false
	}
}

// StartsGroup implements queue.Grouper: a CommitData message opens a new
// group; the member count is unknown ahead of time.
func (m Message) StartsGroup() (string, int, bool) {
	if m.Commit != nil {
		return m.Commit.Hash, 0, true
	}
	return "", 0, false
}

// CompletesGroup implements queue.Grouper. Because the walker does not look
// ahead to know a commit's file-change count in advance, this scanner never
// claims to know a group is complete; consumers infer completion from the
// next message outside the commit (the next CommitData, or an ungrouped
// ScanProgress, ScanCompleted or ScanError message), matching canonical
// ordering.
func (m Message) CompletesGroup() (string, bool) {
	return "", false
}
