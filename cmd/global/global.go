package global

var (
	Version = "0.1.0"

	CfgFile string
	NoColor bool
	NoStyle bool
	Verbose bool
)
