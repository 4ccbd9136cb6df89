package cmd

// rootFlags holds the command line options of the root command
type rootFlags struct {
	ConfigFile string
	Provider   string
	Model      string
	ResumeFile string
	Verbose    bool
}

var flags rootFlags
