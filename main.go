package main

import "github.com/chrisdamba/homeservices/cmd"

func main() {
	cmd.Execute()
}
