package main

import "github.com/oshokin/arming-scheduler/cmd/arming-ctl/cmd"

func main() {
	cmd.Execute()
}
