package domain

// RemoteEntry is one item of a remote directory listing. It exists only for
// the duration of a scan and is never persisted.
type RemoteEntry struct {
	Name        string `json:"name"`
	IsDirectory bool   `json:"isDirectory"`
	SizeBytes   int64  `json:"sizeBytes"`
}
