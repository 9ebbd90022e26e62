package version

// Version and Commit are set at build time via -ldflags.
var (
	Version = "dev"
	Commit  = "none"
)

func GetVersion() string {
	return Version
}

func GetCommit() string {
	return Commit
}
