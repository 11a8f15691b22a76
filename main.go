package main

import "github.com/tutorctl/tutorctl/cmd"

// Version info, overridden at build time via -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cmd.Execute(version, commit, date)
}
