package main

import "github.com/oshokin/arming-scheduler/cmd/arming-server/cmd"

func main() {
	cmd.Execute()
}
