package util

const (
	StorageLocal = "local"
	StorageMinio = "minio"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)
