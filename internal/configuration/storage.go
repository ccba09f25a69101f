package configuration

const (
	StorageBolt   = "bolt"
	StorageFile   = "file"
	StorageMemory = "memory"
)

type StorageConfig struct {
	// Type is one of bolt, file or memory.
	Type string `json:"type"`
	// Dir holds one file per object when Type is file.
	Dir string `json:"dir"`
}
