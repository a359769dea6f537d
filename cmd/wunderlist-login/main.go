package main

import "github.com/ideamans/wunderlistauth/cmd/wunderlist-login/cmd"

func main() {
	cmd.Execute()
}
