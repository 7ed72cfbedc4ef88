package main

import "tiertrainer-backend/cmd"

func main() {
	cmd.Execute()
}
