package main

import "github.com/shaharia-lab/webhookd/cmd"

func main() {
	cmd.Execute()
}
