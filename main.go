package main

import "github.com/frahmantamala/hris-auth/cmd"

func main() {
	cmd.Execute()
}
